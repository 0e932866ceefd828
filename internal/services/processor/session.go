package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

// HandleStore registers outputs as transient download handles. Putting a
// handle for an owner releases the owner's previous handle.
type HandleStore interface {
	Put(owner string, data []byte, contentType, filename string) models.Handle
	ReleaseOwner(owner string) int
}

// SessionOwnerPrefix marks handles owned by a session. Those handles live
// until the session replaces them or is closed.
const SessionOwnerPrefix = "session:"

// IsSessionOwner reports whether owner names a session.
func IsSessionOwner(owner string) bool {
	return strings.HasPrefix(owner, SessionOwnerPrefix)
}

func sessionOwner(id string) string { return SessionOwnerPrefix + id }

type SessionKind string

const (
	SessionCompress SessionKind = "compress"
	SessionPreset   SessionKind = "preset"
)

type SessionOutput struct {
	Handle      models.Handle             `json:"handle"`
	Compression *models.CompressionResult `json:"compression,omitempty"`
	Image       *models.ProcessedImage    `json:"image,omitempty"`
}

type SessionState struct {
	ID        string         `json:"id"`
	Kind      SessionKind    `json:"kind"`
	Filename  string         `json:"filename,omitempty"`
	TargetKB  int            `json:"target_kb,omitempty"`
	Preset    string         `json:"preset,omitempty"`
	Output    *SessionOutput `json:"output,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is a single-file tool: one loaded source and one setting. Changing
// the setting reprocesses the loaded source. A failed run leaves the previous
// source, setting and output in place.
type Session struct {
	mu        sync.Mutex
	id        string
	kind      SessionKind
	processor *ImageProcessor
	handles   HandleStore
	source    *models.InputFile
	targetKB  int
	preset    models.PlatformPreset
	output    *SessionOutput
	createdAt time.Time
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	state := SessionState{
		ID:        s.id,
		Kind:      s.kind,
		Output:    s.output,
		CreatedAt: s.createdAt,
	}
	if s.source != nil {
		state.Filename = s.source.Name
	}
	switch s.kind {
	case SessionCompress:
		state.TargetKB = s.targetKB
	case SessionPreset:
		state.Preset = s.preset.Key
	}
	return state
}

// Load replaces the source file and processes it with the current setting.
func (s *Session) Load(ctx context.Context, file models.InputFile) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx, &file, s.targetKB, s.preset)
}

// SetTarget changes the byte budget and recompresses the loaded file.
func (s *Session) SetTarget(ctx context.Context, targetKB int) (SessionState, error) {
	if s.kind != SessionCompress {
		return SessionState{}, apperrors.Validation("target size applies to compression sessions only")
	}
	if !models.CompressionTarget(targetKB).Valid() {
		return SessionState{}, apperrors.Validation(fmt.Sprintf("unsupported target size %dKB", targetKB))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		s.targetKB = targetKB
		return s.stateLocked(), nil
	}
	return s.runLocked(ctx, s.source, targetKB, s.preset)
}

// SetPreset changes the platform preset and resizes the loaded file again.
func (s *Session) SetPreset(ctx context.Context, key string) (SessionState, error) {
	if s.kind != SessionPreset {
		return SessionState{}, apperrors.Validation("presets apply to resize sessions only")
	}
	preset, ok := models.FindPreset(key)
	if !ok {
		return SessionState{}, apperrors.Validation(fmt.Sprintf("unknown preset %q", key))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		s.preset = preset
		return s.stateLocked(), nil
	}
	return s.runLocked(ctx, s.source, s.targetKB, preset)
}

func (s *Session) runLocked(ctx context.Context, src *models.InputFile, targetKB int, preset models.PlatformPreset) (SessionState, error) {
	out := &SessionOutput{}
	var (
		data        []byte
		filename    string
		contentType string
	)

	switch s.kind {
	case SessionCompress:
		res, err := s.processor.Compress(ctx, src.Data, targetKB)
		if err != nil {
			return s.stateLocked(), err
		}
		out.Compression = res
		data, filename, contentType = res.Data, compressedName(src.Name), "image/jpeg"
	case SessionPreset:
		res, err := s.processor.ResizeToPreset(ctx, src.Data, src.Name, preset)
		if err != nil {
			return s.stateLocked(), err
		}
		out.Image = res
		data, filename, contentType = res.Data, res.Filename, res.ContentType
	default:
		return s.stateLocked(), fmt.Errorf("unknown session kind %q", s.kind)
	}

	out.Handle = s.handles.Put(sessionOwner(s.id), data, contentType, filename)
	s.source = src
	s.targetKB = targetKB
	s.preset = preset
	s.output = out
	return s.stateLocked(), nil
}

type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	processor *ImageProcessor
	handles   HandleStore
	logger    *zap.Logger
}

func NewSessionManager(processor *ImageProcessor, handles HandleStore, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		processor: processor,
		handles:   handles,
		logger:    logger,
	}
}

// Create opens a session. Defaults: 500KB target, instagram_feed preset.
func (m *SessionManager) Create(kind SessionKind, targetKB int, presetKey string) (*Session, error) {
	if kind != SessionCompress && kind != SessionPreset {
		return nil, apperrors.Validation(fmt.Sprintf("unknown session kind %q", kind))
	}
	if targetKB == 0 {
		targetKB = int(models.Target500KB)
	}
	if !models.CompressionTarget(targetKB).Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unsupported target size %dKB", targetKB))
	}
	if presetKey == "" {
		presetKey = "instagram_feed"
	}
	preset, ok := models.FindPreset(presetKey)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown preset %q", presetKey))
	}

	s := &Session{
		id:        uuid.New().String(),
		kind:      kind,
		processor: m.processor,
		handles:   m.handles,
		targetKB:  targetKB,
		preset:    preset,
		createdAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("Session created", zap.String("session_id", s.id), zap.String("kind", string(kind)))
	return s, nil
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes the session and releases its handles.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	released := m.handles.ReleaseOwner(sessionOwner(id))
	m.logger.Info("Session closed", zap.String("session_id", id), zap.Int("released_handles", released))
	return true
}

func (m *SessionManager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Delete(id)
	}
}
