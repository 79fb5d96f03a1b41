package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetAccessToken() string
	SetAccessToken(token string)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastHeader(key string) string
}

// RegisterSteps registers background and assertion steps shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the training center is running$`, steps.serverIsRunning)
	ctx.Step(`^I am signed in as an administrator$`, steps.signedInAsAdmin)
	ctx.Step(`^I am not signed in$`, steps.notSignedIn)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, steps.responseFieldShouldBeNumber)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.responseErrorShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be set$`, steps.responseHeaderShouldBeSet)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serverIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health", nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("server unhealthy: %d %s", s.tc.GetLastResponseStatus(), string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) signedInAsAdmin(ctx context.Context) error {
	if s.tc.GetAccessToken() == "" {
		return fmt.Errorf("E2E_ADMIN_TOKEN not set")
	}
	return nil
}

func (s *commonSteps) notSignedIn(ctx context.Context) error {
	s.tc.SetAccessToken("")
	return nil
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeNumber(ctx context.Context, field string, expected int) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	n, ok := v.(float64)
	if !ok {
		return fmt.Errorf("expected %s to be a number, got %v", field, v)
	}
	if int(n) != expected {
		return fmt.Errorf("expected %s to be %d, got %s", field, expected, strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}

func (s *commonSteps) responseErrorShouldBe(ctx context.Context, code string) error {
	return s.responseFieldShouldBe(ctx, "error", code)
}

func (s *commonSteps) responseHeaderShouldBeSet(ctx context.Context, key string) error {
	if s.tc.GetLastHeader(key) == "" {
		return fmt.Errorf("expected header %s to be set", key)
	}
	return nil
}
