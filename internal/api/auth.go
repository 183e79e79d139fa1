package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// ticketTTL bounds how long an unredeemed WebSocket ticket lives.
	ticketTTL = 60 * time.Second

	// ticketBytes of randomness go into each ticket.
	ticketBytes = 32

	// opUsername is the single built-in operator account. A persisted user
	// store replaces this once multi-user access lands.
	opUsername = "admin"
	opPassword = "admin"

	// defaultTokenTTL applies when the config leaves the JWT TTL unset,
	// in minutes.
	defaultTokenTTL = 15
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ticketStore tracks single-use WebSocket tickets between issuance over
// HTTP and redemption on the upgrade request.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

type ticketEntry struct {
	expiresAt time.Time
}

var wsTickets = &ticketStore{tickets: make(map[string]ticketEntry)}

func (ts *ticketStore) add(ticket string, expiresAt time.Time) {
	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{expiresAt: expiresAt}
	ts.mu.Unlock()
}

// consume removes the ticket whether or not it is still live, so a
// ticket can never be redeemed twice.
func (ts *ticketStore) consume(ticket string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return false
	}
	delete(ts.tickets, ticket)

	return time.Now().Before(entry.expiresAt)
}

func (ts *ticketStore) sweep(now time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for ticket, entry := range ts.tickets {
		if now.After(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

// handleLogin checks the operator credentials and mints a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !credentialsMatch(req.Username, req.Password) {
		writeUnauthorized(w, "invalid credentials")
		return
	}

	signed, ttlSeconds, err := s.signAccessToken(req.Username)
	if err != nil {
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   ttlSeconds,
	})
}

// credentialsMatch compares both fields in constant time regardless of
// which one is wrong.
func credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(opUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(opPassword)) == 1
	return userOK && passOK
}

// signAccessToken builds an HS256 token for sub and returns it with its
// lifetime in seconds.
func (s *Server) signAccessToken(sub string) (string, int, error) {
	ttl := s.secCfg.JWT.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(time.Duration(ttl) * time.Minute).Unix(),
	})

	signed, err := token.SignedString([]byte(s.secCfg.JWT.Secret))
	if err != nil {
		return "", 0, err
	}
	return signed, ttl * 60, nil
}

// handleWSTicket issues a single-use ticket the client presents on the
// WebSocket upgrade, keeping the JWT out of the connection URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	ticket := generateTicket()
	wsTickets.add(ticket, time.Now().Add(ticketTTL))

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}

// validateTicket redeems a ticket, consuming it in the process.
func validateTicket(ticket string) bool {
	return wsTickets.consume(ticket)
}

func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// cleanTicketsLoop drops expired tickets until the context is cancelled.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wsTickets.sweep(time.Now())
		}
	}
}
