package usecases

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
)

const (
	// stateTTL bounds how long a user may sit on Strava's consent screen.
	stateTTL = 15 * time.Minute
	// refreshLeeway refreshes tokens that are about to expire.
	refreshLeeway = time.Minute
)

// StravaService manages Strava OAuth connections.
type StravaService struct {
	conns  ports.StravaConnectionRepository
	oauth  ports.StravaOAuth
	secret []byte
	now    func() time.Time
}

// NewStravaService creates a new StravaService. oauth is nil when Strava is
// not configured; every call then fails with domain.ErrUnavailable.
func NewStravaService(conns ports.StravaConnectionRepository, oauth ports.StravaOAuth, stateSecret string) *StravaService {
	return &StravaService{
		conns:  conns,
		oauth:  oauth,
		secret: []byte(stateSecret),
		now:    time.Now,
	}
}

// AuthURL returns the Strava consent URL for userID.
func (s *StravaService) AuthURL(userID string) (string, error) {
	if s.oauth == nil {
		return "", fmt.Errorf("strava: %w", domain.ErrUnavailable)
	}
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	return s.oauth.AuthCodeURL(s.signState(userID)), nil
}

// HandleCallback completes the OAuth flow and stores the connection.
func (s *StravaService) HandleCallback(ctx context.Context, code, state string) (*domain.StravaConnection, error) {
	if s.oauth == nil {
		return nil, fmt.Errorf("strava: %w", domain.ErrUnavailable)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", domain.ErrInvalidInput)
	}
	userID, err := s.verifyState(state)
	if err != nil {
		return nil, err
	}

	conn, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	conn.UserID = userID

	if err := s.conns.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("save strava connection: %w", err)
	}
	return conn, nil
}

// Status describes userID's connection. A missing connection is not an error.
func (s *StravaService) Status(ctx context.Context, userID string) (*domain.StravaStatus, error) {
	conn, err := s.conns.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.StravaStatus{Connected: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strava connection: %w", err)
	}
	return s.status(conn), nil
}

// Disconnect forgets userID's tokens.
func (s *StravaService) Disconnect(ctx context.Context, userID string) error {
	err := s.conns.DeleteByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("delete strava connection: %w", err)
	}
	return nil
}

// RefreshToken renews userID's access token unconditionally.
func (s *StravaService) RefreshToken(ctx context.Context, userID string) (*domain.StravaStatus, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return nil, err
	}
	conn, err = s.refresh(ctx, conn)
	if err != nil {
		return nil, err
	}
	return s.status(conn), nil
}

// ValidToken returns an access token for userID, refreshing it first when it
// is expired or about to expire.
func (s *StravaService) ValidToken(ctx context.Context, userID string) (string, error) {
	conn, err := s.connection(ctx, userID)
	if err != nil {
		return "", err
	}
	if conn.Expired(s.now().Add(refreshLeeway)) {
		if conn, err = s.refresh(ctx, conn); err != nil {
			return "", err
		}
	}
	return conn.AccessToken, nil
}

func (s *StravaService) connection(ctx context.Context, userID string) (*domain.StravaConnection, error) {
	conn, err := s.conns.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("get strava connection: %w", err)
	}
	return conn, nil
}

func (s *StravaService) refresh(ctx context.Context, conn *domain.StravaConnection) (*domain.StravaConnection, error) {
	if s.oauth == nil {
		return nil, fmt.Errorf("strava: %w", domain.ErrUnavailable)
	}
	fresh, err := s.oauth.Refresh(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("refresh strava token: %w", err)
	}
	fresh.UserID = conn.UserID
	if fresh.AthleteID == 0 {
		fresh.AthleteID = conn.AthleteID
	}
	if fresh.Scope == "" {
		fresh.Scope = conn.Scope
	}
	if err := s.conns.Upsert(ctx, fresh); err != nil {
		return nil, fmt.Errorf("save strava connection: %w", err)
	}
	return fresh, nil
}

func (s *StravaService) status(conn *domain.StravaConnection) *domain.StravaStatus {
	exp := conn.ExpiresAt
	return &domain.StravaStatus{
		Connected: true,
		AthleteID: conn.AthleteID,
		ExpiresAt: &exp,
		IsExpired: conn.Expired(s.now()),
		Scope:     conn.Scope,
	}
}

// signState encodes userID and the issue time, authenticated with HMAC-SHA256.
func (s *StravaService) signState(userID string) string {
	payload := userID + ":" + strconv.FormatInt(s.now().Unix(), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." +
		base64.RawURLEncoding.EncodeToString(s.mac(payload))
}

func (s *StravaService) verifyState(state string) (string, error) {
	enc, sig, ok := strings.Cut(state, ".")
	if !ok {
		return "", fmt.Errorf("%w: malformed state", domain.ErrUnauthorized)
	}
	payload, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("%w: malformed state", domain.ErrUnauthorized)
	}
	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac, s.mac(string(payload))) {
		return "", fmt.Errorf("%w: state signature mismatch", domain.ErrUnauthorized)
	}

	i := strings.LastIndexByte(string(payload), ':')
	if i <= 0 {
		return "", fmt.Errorf("%w: malformed state", domain.ErrUnauthorized)
	}
	issued, err := strconv.ParseInt(string(payload[i+1:]), 10, 64)
	if err != nil || s.now().Sub(time.Unix(issued, 0)) > stateTTL {
		return "", fmt.Errorf("%w: state expired", domain.ErrUnauthorized)
	}
	return string(payload[:i]), nil
}

func (s *StravaService) mac(payload string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}
