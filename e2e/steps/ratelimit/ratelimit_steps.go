package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	SetClientIP(ip string)
	GetLastResponseStatus() int
	GetLastHeader(key string) string
}

// RegisterSteps registers public lookup throttling step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I am looking up certificates from IP "([^"]*)"$`, steps.lookingUpFromIP)
	ctx.Step(`^I look up (\d+) unknown display ids$`, steps.lookupUnknownN)
	ctx.Step(`^every lookup should have returned (\d+)$`, steps.everyLookupReturned)
	ctx.Step(`^the next lookup should return (\d+)$`, steps.nextLookupShouldReturn)
	ctx.Step(`^the response should ask me to retry later$`, steps.shouldAskToRetry)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) lookingUpFromIP(ctx context.Context, ip string) error {
	s.tc.SetClientIP(ip)
	s.statuses = nil
	return nil
}

func (s *ratelimitSteps) lookupUnknownN(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.tc.GET(fmt.Sprintf("/certificates/CERT-1900-%04d", i+1), nil); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) everyLookupReturned(ctx context.Context, expected int) error {
	for i, got := range s.statuses {
		if got != expected {
			return fmt.Errorf("lookup %d returned %d, expected %d", i+1, got, expected)
		}
	}
	return nil
}

func (s *ratelimitSteps) nextLookupShouldReturn(ctx context.Context, expected int) error {
	if err := s.tc.GET("/certificates/CERT-1900-9999", nil); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *ratelimitSteps) shouldAskToRetry(ctx context.Context) error {
	raw := s.tc.GetLastHeader("Retry-After")
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 1 {
		return fmt.Errorf("expected a positive Retry-After, got %q", raw)
	}
	return nil
}
