package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/internal/secure"
)

const resetRequestedMessage = "if the account exists, a reset code has been sent"

type ResetRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
}

type ResetRequestResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token"`
}

type ResetVerifyRequest struct {
	ResetToken string `json:"reset_token" validate:"required"`
	Code       string `json:"code" validate:"required,max=16"`
}

type ResetCommitRequest struct {
	AccessCode  string `json:"access_code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

type EmailCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type EmailVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,max=16"`
}

type CodeRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

// ResetRequestHandler answers 202 with the same body shape whether or not the account
// exists. Unknown identifiers get a random token that no code will ever match.
func (s *Server) ResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetRequest
		if !s.decode(w, r, &req) {
			return
		}
		resetToken, found, err := s.svc.Recovery.RequestReset(r.Context(), req.Identifier)
		if err != nil {
			log.Error().Err(err).Msg("password reset request failed")
			found = false
		}
		if !found {
			if resetToken, err = secure.Token(); err != nil {
				writeError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusAccepted, ResetRequestResponse{Message: resetRequestedMessage, ResetToken: resetToken})
	}
}

func (s *Server) ResetVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetVerifyRequest
		if !s.decode(w, r, &req) {
			return
		}
		accessCode, ok, err := s.svc.Recovery.VerifyCode(r.Context(), req.ResetToken, req.Code)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeJSONError(w, "invalid_operation", "invalid or expired code", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_code": accessCode})
	}
}

func (s *Server) ResetCommitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetCommitRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.svc.Recovery.Commit(r.Context(), req.NewPassword, req.AccessCode); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EmailSendCodeHandler always answers 202 so the endpoint does not reveal which
// addresses are registered or already confirmed.
func (s *Server) EmailSendCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmailCodeRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.svc.Verification.SendEmailCode(r.Context(), req.Email); err != nil {
			if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidOperation) {
				log.Debug().Err(err).Msg("email code not sent")
			} else {
				log.Error().Err(err).Msg("email code request failed")
			}
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) EmailVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EmailVerifyRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.svc.Verification.VerifyEmailCode(r.Context(), req.Email, req.Code); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) DeleteSendCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if err := s.svc.Verification.SendDeleteAccountCode(r.Context(), p.UserID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) DeleteConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		var req CodeRequest
		if !s.decode(w, r, &req) {
			return
		}
		if err := s.svc.Verification.VerifyDeleteAccountCode(r.Context(), p.UserID, req.Code); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
