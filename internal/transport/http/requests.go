package httptransport

import (
	"net"
	"strings"

	dErrors "hatch/pkg/domain-errors"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (r *registerRequest) Validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validatePassword(r.Password); err != nil {
		return err
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validateEmail(r.Email)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

type loginResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type reportRequest struct {
	Category int    `json:"category"`
	Reason   string `json:"reason"`
}

func (r *reportRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

type ipRequest struct {
	IP string `json:"ip"`
}

func (r *ipRequest) Validate() error {
	r.IP = strings.TrimSpace(r.IP)
	if net.ParseIP(r.IP) == nil {
		return dErrors.New(dErrors.CodeValidation, "invalid ip address")
	}
	return nil
}

type bannedResponse struct {
	Banned bool `json:"banned"`
}

type successResponse struct {
	Success bool `json:"success"`
}
