package audit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// AuditEventSuite tests the AuditEvent category mapping and aggregate routing.
type AuditEventSuite struct {
	suite.Suite
}

func TestAuditEventSuite(t *testing.T) {
	suite.Run(t, new(AuditEventSuite))
}

func (s *AuditEventSuite) TestCategory_ComplianceEvents() {
	for _, event := range []AuditEvent{
		EventRegistrationCompleted,
		EventRegistrationReconciled,
		EventRequestApproved,
		EventRequestRejected,
		EventAdminGranted,
		EventRecordDeactivated,
		EventRecordActivated,
	} {
		s.Run(string(event), func() {
			s.Equal(CategoryCompliance, event.Category())
		})
	}
}

func (s *AuditEventSuite) TestCategory_SecurityAndFallback() {
	s.Equal(CategorySecurity, EventAdminDenied.Category())
	s.Equal(CategoryOperations, EventEmailCollected.Category())
	s.Equal(CategoryOperations, AuditEvent("something_new").Category())
}

func (s *AuditEventSuite) TestAggregate() {
	typ, id := Event{AdminRequestID: "r-1", SessionID: "s-1"}.Aggregate()
	s.Equal("admin_request", typ)
	s.Equal("r-1", id)

	typ, id = Event{SessionID: "s-1"}.Aggregate()
	s.Equal("registration", typ)
	s.Equal("s-1", id)

	typ, id = Event{Subject: "0xabc"}.Aggregate()
	s.Equal("registry_record", typ)
	s.Equal("0xabc", id)
}
