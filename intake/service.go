// Package intake hosts wizard sessions for the HTTP service and the terminal
// client. It serialises events per session, renders the barcode when a
// session reaches the tracking summary and keeps drafts in sync.
package intake

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/google/uuid"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
	"github.com/ahmadzakiakmal/shiptrack/drafts"
	"github.com/ahmadzakiakmal/shiptrack/export"
	"github.com/ahmadzakiakmal/shiptrack/render"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

// DraftStore keeps wizard snapshots between restarts; *drafts.Store satisfies it
type DraftStore interface {
	Save(id string, snap wizard.Snapshot) error
	Load(id string) (wizard.Snapshot, error)
	Delete(id string) error
}

// BarcodeView describes the rendered symbol of a session
type BarcodeView struct {
	Symbology string `json:"symbology"`
	Text      string `json:"text"`
	Checksum  int    `json:"checksum"`
	Modules   int    `json:"modules"`
	WidthPx   int    `json:"widthPx"`
	HeightPx  int    `json:"heightPx"`
}

// View is what an operator sees of a session
type View struct {
	SessionID string                `json:"sessionId"`
	Step      wizard.Step           `json:"step"`
	StepName  string                `json:"stepName"`
	StepLabel string                `json:"stepLabel"`
	Record    wizard.ShipmentRecord `json:"record"`
	Submitted bool                  `json:"submitted"`
	Barcode   *BarcodeView          `json:"barcode,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type session struct {
	id string

	mu        sync.Mutex
	wizard    *wizard.Wizard
	symbol    *barcode.Symbol
	raster    *image.Gray
	updatedAt time.Time

	exporting  wizard.Guard
	submitting wizard.Guard
}

func (s *session) view() *View {
	v := &View{
		SessionID: s.id,
		Step:      s.wizard.Step(),
		StepName:  s.wizard.Step().String(),
		StepLabel: s.wizard.Step().Label(),
		Record:    s.wizard.Record(),
		Submitted: s.wizard.Submitted(),
		UpdatedAt: s.updatedAt,
	}
	if s.symbol != nil && s.raster != nil {
		v.Barcode = &BarcodeView{
			Symbology: s.symbol.Symbology,
			Text:      s.symbol.Text,
			Checksum:  s.symbol.Checksum,
			Modules:   s.symbol.Modules(),
			WidthPx:   s.raster.Bounds().Dx(),
			HeightPx:  s.raster.Bounds().Dy(),
		}
	}
	return v
}

// Service owns every live intake session
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session

	submitter wizard.Submitter
	drafts    DraftStore
	renderCfg render.Config
	pipeline  *export.Pipeline
	logger    cmtlog.Logger
}

// NewService creates an intake service. drafts may be nil to keep sessions in
// memory only.
func NewService(submitter wizard.Submitter, draftStore DraftStore, renderCfg render.Config, pipeline *export.Pipeline, logger cmtlog.Logger) (*Service, error) {
	if err := renderCfg.Validate(); err != nil {
		return nil, err
	}
	if pipeline == nil {
		pipeline = export.NewPipeline()
	}
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	return &Service{
		sessions:  make(map[string]*session),
		submitter: submitter,
		drafts:    draftStore,
		renderCfg: renderCfg,
		pipeline:  pipeline,
		logger:    logger,
	}, nil
}

// Start opens a new session with a fresh tracking identifier
func (svc *Service) Start() (*View, error) {
	s := &session{
		id:        uuid.New().String(),
		wizard:    wizard.New(svc.submitter),
		updatedAt: time.Now(),
	}

	svc.mu.Lock()
	svc.sessions[s.id] = s
	svc.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	svc.persist(s)
	svc.logger.Info("Intake session started", "session_id", s.id, "tracking_id", s.wizard.TrackingIdentifier())
	return s.view(), nil
}

// lookup finds a live session, reviving it from the draft store if needed
func (svc *Service) lookup(id string) (*session, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if s, ok := svc.sessions[id]; ok {
		return s, nil
	}
	if svc.drafts == nil {
		return nil, ErrSessionNotFound
	}

	snap, err := svc.drafts.Load(id)
	if err != nil {
		if errors.Is(err, drafts.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	w, err := wizard.Restore(snap, svc.submitter)
	if err != nil {
		svc.logger.Error("Discarding unreadable draft", "session_id", id, "err", err)
		return nil, ErrSessionNotFound
	}

	s := &session{id: id, wizard: w, updatedAt: time.Now()}
	if w.Step() == wizard.StepTrackingSummary {
		if err := svc.render(s); err != nil {
			svc.logger.Error("Failed to render restored session", "session_id", id, "err", err)
		}
	}
	svc.sessions[id] = s
	svc.logger.Info("Intake session restored from draft", "session_id", id, "step", w.Step().String())
	return s, nil
}

// Get returns the current view of a session
func (svc *Service) Get(id string) (*View, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// mutate runs fn under the session lock and stores a draft when it succeeds
func (svc *Service) mutate(id string, fn func(s *session) error) (*View, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting.Busy() {
		return nil, wizard.ErrSubmissionInFlight
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	s.updatedAt = time.Now()
	svc.persist(s)
	return s.view(), nil
}

// UpdateField sets one field of the session's record
func (svc *Service) UpdateField(id string, field wizard.Field, value string) (*View, error) {
	return svc.mutate(id, func(s *session) error {
		return s.wizard.UpdateField(field, value)
	})
}

// Advance moves to the next step and renders the barcode on reaching the
// tracking summary
func (svc *Service) Advance(id string) (*View, error) {
	var renderErr error
	v, err := svc.mutate(id, func(s *session) error {
		if err := s.wizard.Advance(); err != nil {
			return err
		}
		if s.wizard.Step() == wizard.StepTrackingSummary {
			renderErr = svc.render(s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if renderErr != nil {
		svc.logger.Error("Failed to render barcode", "session_id", id, "err", renderErr)
		return v, renderErr
	}
	return v, nil
}

// Retreat moves back one step
func (svc *Service) Retreat(id string) (*View, error) {
	return svc.mutate(id, func(s *session) error {
		if err := s.wizard.Retreat(); err != nil {
			return err
		}
		s.clearRender()
		return nil
	})
}

// JumpToStep goes back to an earlier step to edit it
func (svc *Service) JumpToStep(id string, target wizard.Step) (*View, error) {
	return svc.mutate(id, func(s *session) error {
		if err := s.wizard.JumpToStep(target); err != nil {
			return err
		}
		s.clearRender()
		return nil
	})
}

func (s *session) clearRender() {
	if s.wizard.Step() != wizard.StepTrackingSummary {
		s.symbol = nil
		s.raster = nil
	}
}

func (svc *Service) render(s *session) error {
	sym, err := barcode.Encode(s.wizard.TrackingIdentifier())
	if err != nil {
		return &InternalError{Op: "barcode encoding", Err: err}
	}
	img, err := render.Render(sym, svc.renderCfg)
	if err != nil {
		return &InternalError{Op: "barcode rendering", Err: err}
	}
	s.symbol = sym
	s.raster = img
	return nil
}

// Export produces an artifact from the session's rendered barcode. Only one
// export per session may run at a time.
func (svc *Service) Export(id string, kind export.Kind) (*export.Artifact, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	raster := s.raster
	s.mu.Unlock()
	if raster == nil {
		return nil, export.ErrRendererNotReady
	}

	if !s.exporting.TryAcquire() {
		return nil, ErrExportInFlight
	}
	defer s.exporting.Release()

	artifact, err := svc.pipeline.Export(raster, kind)
	if err != nil {
		if errors.Is(err, export.ErrRendererNotReady) || errors.Is(err, export.ErrUnknownKind) {
			return nil, err
		}
		svc.logger.Error("Export failed", "session_id", id, "kind", kind.String(), "err", err)
		return nil, &InternalError{Op: "export", Err: err}
	}
	svc.logger.Info("Barcode exported", "session_id", id, "kind", kind.String(), "bytes", len(artifact.Data))
	return artifact, nil
}

// Finalize submits the session's record. A failed submission keeps the
// session and its draft so the operator can retry. The session lock is not
// held during the submission: Get and Export keep working while mutations
// are rejected with ErrSubmissionInFlight.
func (svc *Service) Finalize(ctx context.Context, id string) (*wizard.Acknowledgement, *View, error) {
	s, err := svc.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	if !s.submitting.TryAcquire() {
		return nil, nil, wizard.ErrSubmissionInFlight
	}
	defer s.submitting.Release()

	// a mutation that started before the guard was taken finishes here
	s.mu.Lock()
	atSummary := s.wizard.Step() == wizard.StepTrackingSummary
	s.mu.Unlock()
	if !atSummary {
		return nil, nil, wizard.ErrNotAtSummary
	}

	ack, err := s.wizard.Finalize(ctx)
	if err != nil {
		if errors.Is(err, wizard.ErrSubmissionFailed) {
			svc.logger.Error("Submission failed", "session_id", id, "tracking_id", s.wizard.TrackingIdentifier(), "err", err)
		}
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = time.Now()
	if svc.drafts != nil {
		if err := svc.drafts.Delete(id); err != nil {
			svc.logger.Error("Failed to delete draft", "session_id", id, "err", err)
		}
	}
	svc.logger.Info("Shipment submitted", "session_id", id, "tracking_id", ack.TrackingIdentifier)
	return ack, s.view(), nil
}

// Discard drops a session and its draft. An id that is neither live nor
// saved as a draft gives ErrSessionNotFound.
func (svc *Service) Discard(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	s, live := svc.sessions[id]
	if live && s.submitting.Busy() {
		return wizard.ErrSubmissionInFlight
	}

	saved := false
	if svc.drafts != nil {
		_, err := svc.drafts.Load(id)
		switch {
		case err == nil:
			saved = true
		case !errors.Is(err, drafts.ErrNotFound):
			return err
		}
	}
	if !live && !saved {
		return ErrSessionNotFound
	}

	delete(svc.sessions, id)
	if saved {
		if err := svc.drafts.Delete(id); err != nil {
			return err
		}
	}
	svc.logger.Info("Intake session discarded", "session_id", id)
	return nil
}

// persist writes the session snapshot; callers hold s.mu
func (svc *Service) persist(s *session) {
	if svc.drafts == nil || s.wizard.Submitted() {
		return
	}
	if err := svc.drafts.Save(s.id, s.wizard.Snapshot()); err != nil {
		svc.logger.Error("Failed to save draft", "session_id", s.id, "err", err)
	}
}
