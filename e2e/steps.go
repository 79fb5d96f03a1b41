package e2e

import (
	"github.com/cucumber/godog"

	"trainingcenter/e2e/steps/certificates"
	"trainingcenter/e2e/steps/common"
	"trainingcenter/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background, generic requests, assertions
	common.RegisterSteps(ctx, tc)

	// Issuance, lookup and versioning
	certificates.RegisterSteps(ctx, tc)

	// Public lookup throttling
	ratelimit.RegisterSteps(ctx, tc)
}
