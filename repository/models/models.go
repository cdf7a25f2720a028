package models

import "time"

// Shipment is a submitted shipment record keyed by its tracking identifier
type Shipment struct {
	TrackingID      string    `gorm:"column:tracking_id;primaryKey;type:varchar(36)" json:"trackingIdentifier"`
	SenderName      string    `gorm:"column:sender_name;type:varchar(255);not null" json:"senderName"`
	SenderAddress   string    `gorm:"column:sender_address;type:text;not null" json:"senderAddress"`
	ReceiverName    string    `gorm:"column:receiver_name;type:varchar(255);not null" json:"receiverName"`
	ReceiverAddress string    `gorm:"column:receiver_address;type:text;not null" json:"receiverAddress"`
	ShipmentDetails string    `gorm:"column:shipment_details;type:text;not null" json:"shipmentDetails"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	// Relationships
	Label *Label `gorm:"foreignKey:TrackingID;references:TrackingID" json:"label,omitempty"`
}

// Label is the barcode computed for a shipment when it was stored
type Label struct {
	ID         string    `gorm:"column:label_id;primaryKey;type:varchar(36)" json:"id"`
	TrackingID string    `gorm:"column:tracking_id;type:varchar(36);uniqueIndex;not null" json:"trackingIdentifier"`
	Symbology  string    `gorm:"column:symbology;type:varchar(20);not null" json:"symbology"`
	Checksum   int       `gorm:"column:checksum;not null" json:"checksum"`
	Codewords  string    `gorm:"column:codewords;type:text;not null" json:"codewords"` // space separated values, start through stop
	Modules    int       `gorm:"column:modules;not null" json:"modules"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}
