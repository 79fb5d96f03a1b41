package e2e

import (
	"context"
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestFeatures runs the feature files against a live server at E2E_BASE_URL.
func TestFeatures(t *testing.T) {
	if os.Getenv("E2E_BASE_URL") == "" {
		t.Skip("E2E_BASE_URL not set")
	}

	tc := NewTestContext()
	suite := godog.TestSuite{
		Name: "trainingcenter",
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
				tc.Reset()
				return ctx, nil
			})
			RegisterSteps(ctx, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Tags:     os.Getenv("E2E_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
