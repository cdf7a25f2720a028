package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
	"github.com/ahmadzakiakmal/shiptrack/repository"
	"github.com/ahmadzakiakmal/shiptrack/repository/models"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

// ShipmentStore persists shipments; *repository.Repository satisfies it
type ShipmentStore interface {
	CreateShipment(shipment *models.Shipment, label *models.Label) *repository.RepositoryError
}

// LocalSubmitter validates a record, computes its label and stores both
type LocalSubmitter struct {
	store  ShipmentStore
	logger cmtlog.Logger
}

// NewLocalSubmitter creates a submitter backed by a shipment store
func NewLocalSubmitter(store ShipmentStore, logger cmtlog.Logger) *LocalSubmitter {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	return &LocalSubmitter{store: store, logger: logger}
}

// Submit implements wizard.Submitter
func (l *LocalSubmitter) Submit(ctx context.Context, record wizard.ShipmentRecord) (*wizard.Acknowledgement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := wizard.CheckTrackingIdentifier(record.TrackingIdentifier); err != nil {
		return nil, err
	}
	if err := wizard.ValidateRecord(&record); err != nil {
		return nil, err
	}

	shipment, label, err := BuildShipment(record)
	if err != nil {
		return nil, err
	}
	if repoErr := l.store.CreateShipment(shipment, label); repoErr != nil {
		l.logger.Error("Failed to store shipment", "tracking_id", record.TrackingIdentifier, "code", repoErr.Code, "err", repoErr.Detail)
		return nil, repoErr
	}
	l.logger.Info("Shipment stored", "tracking_id", shipment.TrackingID, "checksum", label.Checksum)

	payload, err := json.Marshal(shipment)
	if err != nil {
		return nil, fmt.Errorf("encoding acknowledgement: %w", err)
	}
	return &wizard.Acknowledgement{
		TrackingIdentifier: shipment.TrackingID,
		Payload:            payload,
	}, nil
}

// BuildShipment maps a record to its database rows, encoding the label on the way
func BuildShipment(record wizard.ShipmentRecord) (*models.Shipment, *models.Label, error) {
	sym, err := barcode.Encode(record.TrackingIdentifier)
	if err != nil {
		return nil, nil, &InternalError{Op: "label encoding", Err: err}
	}
	shipment := &models.Shipment{
		TrackingID:      record.TrackingIdentifier,
		SenderName:      strings.TrimSpace(record.SenderName),
		SenderAddress:   strings.TrimSpace(record.SenderAddress),
		ReceiverName:    strings.TrimSpace(record.ReceiverName),
		ReceiverAddress: strings.TrimSpace(record.ReceiverAddress),
		ShipmentDetails: strings.TrimSpace(record.ShipmentDetails),
	}
	label := &models.Label{
		ID:         uuid.New().String(),
		TrackingID: record.TrackingIdentifier,
		Symbology:  sym.Symbology,
		Checksum:   sym.Checksum,
		Codewords:  joinCodewords(sym.Codewords),
		Modules:    sym.Modules(),
	}
	return shipment, label, nil
}

func joinCodewords(cw []int) string {
	parts := make([]string, len(cw))
	for i, v := range cw {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
