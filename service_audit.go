package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/softprint/authcore/internal/audit"
)

func (s *Service) emitAudit(
	ctx context.Context,
	eventType audit.EventType,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	s.audit.Emit(ctx, event)
}

// auditErrorCode reduces any error to the canonical code for the audit
// record. Raw diagnostic text never enters the audit stream.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return strings.ToLower(string(authErr.Code))
	}
	return strings.ToLower(string(CodeUnknownError))
}
