package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

type steps struct {
	current func() *TestContext
}

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, current func() *TestContext) {
	s := &steps{current: current}

	ctx.Step(`^the onboarding service is running$`, s.serviceIsRunning)

	// Registration session
	ctx.Step(`^wallet "([^"]*)" starts a registration$`, s.startRegistration)
	ctx.Step(`^wallet "([^"]*)" selects role "([^"]*)" with email "([^"]*)"$`, s.selectRole)
	ctx.Step(`^wallet "([^"]*)" names organization "([^"]*)" with domain "([^"]*)"$`, s.submitDetails)
	ctx.Step(`^wallet "([^"]*)" sends the verification email from "([^"]*)"$`, s.sendVerificationEmail)
	ctx.Step(`^wallet "([^"]*)" awaits the verification email$`, s.awaitEmail)
	ctx.Step(`^wallet "([^"]*)" generates the proof$`, s.generateProof)
	ctx.Step(`^wallet "([^"]*)" submits the registration$`, s.submit)
	ctx.Step(`^wallet "([^"]*)" registers organization "([^"]*)" as "([^"]*)" from "([^"]*)"$`, s.registerOrganization)

	// Registry reads
	ctx.Step(`^the role of "([^"]*)" should be "([^"]*)"$`, s.roleShouldBe)
	ctx.Step(`^the organization record of "([^"]*)" should have domain "([^"]*)"$`, s.organizationDomainShouldBe)
	ctx.Step(`^"([^"]*)" should have no organization record$`, s.noOrganizationRecord)
	ctx.Step(`^the domain "([^"]*)" should be taken$`, s.domainShouldBeTaken)

	// Admin queue
	ctx.Step(`^wallet "([^"]*)" requests "([^"]*)" admin access with reason "([^"]*)"$`, s.requestAdminAccess)
	ctx.Step(`^admin "([^"]*)" approves the request$`, s.approveRequest)
	ctx.Step(`^the request should be processed by "([^"]*)"$`, s.requestProcessedBy)
	ctx.Step(`^"([^"]*)" should be an admin with role "([^"]*)"$`, s.adminRoleShouldBe)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, s.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, s.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, s.responseFieldShouldEqual)
	ctx.Step(`^the session state should be "([^"]*)"$`, s.sessionStateShouldBe)
}

func (s *steps) serviceIsRunning(ctx context.Context) error {
	return s.current().GET("/health", nil)
}

func (s *steps) startRegistration(ctx context.Context, wallet string) error {
	tc := s.current()
	if err := tc.POST("/registrations", map[string]any{"identity": wallet}); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	sessionID, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.Sessions[strings.ToLower(wallet)] = fmt.Sprint(sessionID)
	return nil
}

func (s *steps) selectRole(ctx context.Context, wallet, role, email string) error {
	return s.sessionPOST(wallet, "/role", map[string]any{"role": role, "email": email})
}

func (s *steps) submitDetails(ctx context.Context, wallet, name, domain string) error {
	return s.sessionPOST(wallet, "/details", map[string]any{"organization_name": name, "domain": domain})
}

// sendVerificationEmail reads the session's instructions and delivers a
// message that follows them.
func (s *steps) sendVerificationEmail(ctx context.Context, wallet, from string) error {
	tc := s.current()
	sessionID, err := s.sessionOf(wallet)
	if err != nil {
		return err
	}
	if err := tc.GET("/registrations/"+sessionID, nil); err != nil {
		return err
	}
	correlationID, err := tc.GetResponseField("instructions.correlation_id")
	if err != nil {
		return err
	}
	subject, err := tc.GetResponseField("instructions.subject")
	if err != nil {
		return err
	}
	return tc.DeliverMail(fmt.Sprint(correlationID), from, fmt.Sprint(subject))
}

func (s *steps) awaitEmail(ctx context.Context, wallet string) error {
	return s.sessionPOST(wallet, "/email/await", nil)
}

func (s *steps) generateProof(ctx context.Context, wallet string) error {
	return s.sessionPOST(wallet, "/proof", nil)
}

func (s *steps) submit(ctx context.Context, wallet string) error {
	return s.sessionPOST(wallet, "/submit", nil)
}

// registerOrganization runs the whole organization flow up to submit.
func (s *steps) registerOrganization(ctx context.Context, wallet, name, role, from string) error {
	domain := from[strings.LastIndexByte(from, '@')+1:]
	if err := s.startRegistration(ctx, wallet); err != nil {
		return err
	}
	if err := s.selectRole(ctx, wallet, role, from); err != nil {
		return err
	}
	if err := s.submitDetails(ctx, wallet, name, domain); err != nil {
		return err
	}
	if err := s.sendVerificationEmail(ctx, wallet, from); err != nil {
		return err
	}
	if err := s.awaitEmail(ctx, wallet); err != nil {
		return err
	}
	if err := s.sessionStateShouldBe(ctx, "EMAIL_COLLECTED"); err != nil {
		return err
	}
	if err := s.generateProof(ctx, wallet); err != nil {
		return err
	}
	if err := s.sessionStateShouldBe(ctx, "PROOF_GENERATED"); err != nil {
		return err
	}
	return s.submit(ctx, wallet)
}

func (s *steps) roleShouldBe(ctx context.Context, wallet, role string) error {
	tc := s.current()
	if err := tc.GET("/registry/roles/"+wallet, nil); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusOK); err != nil {
		return err
	}
	return s.responseFieldShouldEqual(ctx, "role", role)
}

func (s *steps) organizationDomainShouldBe(ctx context.Context, wallet, domain string) error {
	tc := s.current()
	if err := tc.GET("/registry/organizations/"+wallet, nil); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusOK); err != nil {
		return err
	}
	if err := s.responseFieldShouldEqual(ctx, "is_active", "true"); err != nil {
		return err
	}
	return s.responseFieldShouldEqual(ctx, "domain", domain)
}

func (s *steps) noOrganizationRecord(ctx context.Context, wallet string) error {
	if err := s.current().GET("/registry/organizations/"+wallet, nil); err != nil {
		return err
	}
	return s.expectStatus(http.StatusNotFound)
}

func (s *steps) domainShouldBeTaken(ctx context.Context, domain string) error {
	if err := s.current().GET("/registry/domains/"+domain, nil); err != nil {
		return err
	}
	return s.responseFieldShouldEqual(ctx, "taken", "true")
}

func (s *steps) requestAdminAccess(ctx context.Context, wallet, role, reason string) error {
	tc := s.current()
	if err := tc.POST("/requests/admin-access", map[string]any{
		"identity": wallet,
		"role":     role,
		"reason":   reason,
	}); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusCreated); err != nil {
		return err
	}
	requestID, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.LastRequestID = fmt.Sprint(requestID)
	return nil
}

func (s *steps) approveRequest(ctx context.Context, admin string) error {
	tc := s.current()
	if tc.LastRequestID == "" {
		return fmt.Errorf("no request has been created in this scenario")
	}
	headers, err := tc.AdminHeaders(admin)
	if err != nil {
		return err
	}
	return tc.POSTWithHeaders("/admin/requests/"+tc.LastRequestID+"/approve", map[string]any{}, headers)
}

func (s *steps) requestProcessedBy(ctx context.Context, admin string) error {
	tc := s.current()
	if err := s.expectStatus(http.StatusOK); err != nil {
		return err
	}
	if err := s.responseFieldShouldEqual(ctx, "status", "APPROVED"); err != nil {
		return err
	}
	processedBy, err := tc.GetResponseField("processed_by")
	if err != nil {
		return err
	}
	if !strings.EqualFold(fmt.Sprint(processedBy), admin) {
		return fmt.Errorf("processed_by: expected %s but got %v", admin, processedBy)
	}
	processedTime, err := tc.GetResponseField("processed_time")
	if err != nil {
		return err
	}
	if fmt.Sprint(processedTime) == "" {
		return fmt.Errorf("processed_time is empty")
	}
	return nil
}

func (s *steps) adminRoleShouldBe(ctx context.Context, wallet, role string) error {
	tc := s.current()
	headers, err := tc.AdminHeaders(SuperAdmin)
	if err != nil {
		return err
	}
	if err := tc.GET("/admin/admins/"+wallet, headers); err != nil {
		return err
	}
	if err := s.expectStatus(http.StatusOK); err != nil {
		return err
	}
	return s.responseFieldShouldEqual(ctx, "role", role)
}

func (s *steps) responseStatusShouldBe(ctx context.Context, expected int) error {
	return s.expectStatus(expected)
}

func (s *steps) responseShouldContain(ctx context.Context, text string) error {
	tc := s.current()
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, string(tc.LastResponseBody))
	}
	return nil
}

func (s *steps) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	actual, err := s.current().GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actual) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, actual)
	}
	return nil
}

func (s *steps) sessionStateShouldBe(ctx context.Context, state string) error {
	return s.responseFieldShouldEqual(ctx, "state", state)
}

func (s *steps) sessionPOST(wallet, suffix string, body any) error {
	sessionID, err := s.sessionOf(wallet)
	if err != nil {
		return err
	}
	if body == nil {
		body = map[string]any{}
	}
	if err := s.current().POST("/registrations/"+sessionID+suffix, body); err != nil {
		return err
	}
	return s.expectStatus(http.StatusOK)
}

func (s *steps) sessionOf(wallet string) (string, error) {
	sessionID, ok := s.current().Sessions[strings.ToLower(wallet)]
	if !ok {
		return "", fmt.Errorf("wallet %s has not started a registration", wallet)
	}
	return sessionID, nil
}

func (s *steps) expectStatus(expected int) error {
	tc := s.current()
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d but got %d: %s", expected, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}
