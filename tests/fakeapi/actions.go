package fakeapi

import (
	"fmt"
	"strings"
)

// DefaultActions mirror the backend's entity action endpoints.
var DefaultActions = map[string]Action{
	"activate":   setStatus("ACTIVE"),
	"deactivate": setStatus("INACTIVE"),
	"approve":    setStatus("APPROVED"),
	"reject": func(row Row, body Row) error {
		reason, _ := body["reason"].(string)
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("a rejection reason is required")
		}
		row["status"] = "REJECTED"
		row["rejectionReason"] = reason
		return nil
	},
	"promote": setRole,
	"demote":  setRole,
}

func setStatus(status string) Action {
	return func(row Row, _ Row) error {
		if row["status"] == status {
			return fmt.Errorf("already %s", strings.ToLower(status))
		}
		row["status"] = status
		return nil
	}
}

func setRole(row Row, body Row) error {
	role, _ := body["role"].(string)
	if role == "" {
		return fmt.Errorf("a role is required")
	}
	if row["role"] == role {
		return fmt.Errorf("member is already %s", role)
	}
	row["role"] = role
	return nil
}
