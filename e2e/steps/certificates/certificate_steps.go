package certificates

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	PUT(path string, body interface{}) error
	DELETE(path string) error
	GET(path string, headers map[string]string) error
	AdminGET(path string) error
	GetResponseField(field string) (interface{}, error)
	Save(key, value string)
	Recall(key string) (string, error)
}

// RegisterSteps registers issuance, lookup and versioning step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &certificateSteps{tc: tc}

	// Issuance
	ctx.Step(`^I issue a certificate to "([^"]*)" for "([^"]*)" dated "([^"]*)" with scores:$`, steps.issueWithScores)
	ctx.Step(`^I save the certificate as "([^"]*)"$`, steps.saveCertificate)
	ctx.Step(`^the issued display id should match "([^"]*)"$`, steps.displayIDShouldMatch)
	ctx.Step(`^the response should warn about (\d+) existing certificates? with next version (\d+)$`, steps.shouldWarnAboutDuplicate)
	ctx.Step(`^the response should not warn about duplicates$`, steps.shouldNotWarn)

	// Editing
	ctx.Step(`^I edit certificate "([^"]*)" dated "([^"]*)" with scores:$`, steps.editWithScores)
	ctx.Step(`^I delete certificate "([^"]*)"$`, steps.deleteCertificate)

	// Lookup
	ctx.Step(`^I look up certificate "([^"]*)"$`, steps.lookupSaved)
	ctx.Step(`^I look up display id "([^"]*)"$`, steps.lookupDisplayID)
	ctx.Step(`^I look up certificates for student "([^"]*)" and course "([^"]*)"$`, steps.lookupByNames)
	ctx.Step(`^I list all certificates$`, steps.listAll)
	ctx.Step(`^I request the audit trail of certificate "([^"]*)"$`, steps.auditTrail)
}

type certificateSteps struct {
	tc TestContext
}

func scoresFromTable(table *godog.Table) (map[string]interface{}, error) {
	if len(table.Rows) < 2 {
		return nil, fmt.Errorf("scores table needs a header and at least one row")
	}
	scores := make(map[string]interface{}, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 3 {
			return nil, fmt.Errorf("scores rows need subject, obtained and total")
		}
		scores[row.Cells[0].Value] = map[string]string{
			"obtained": row.Cells[1].Value,
			"total":    row.Cells[2].Value,
		}
	}
	return scores, nil
}

func (s *certificateSteps) issueWithScores(ctx context.Context, student, course, date string, table *godog.Table) error {
	scores, err := scoresFromTable(table)
	if err != nil {
		return err
	}
	return s.tc.POST("/admin/certificates", map[string]interface{}{
		"student_id": student,
		"course_id":  course,
		"issue_date": date,
		"scores":     scores,
	})
}

func (s *certificateSteps) saveCertificate(ctx context.Context, name string) error {
	certID, err := s.tc.GetResponseField("certificate.id")
	if err != nil {
		return err
	}
	displayID, err := s.tc.GetResponseField("certificate.display_id")
	if err != nil {
		return err
	}
	s.tc.Save(name+".id", fmt.Sprint(certID))
	s.tc.Save(name+".display_id", fmt.Sprint(displayID))
	return nil
}

func (s *certificateSteps) displayIDShouldMatch(ctx context.Context, pattern string) error {
	v, err := s.tc.GetResponseField("certificate.display_id")
	if err != nil {
		return err
	}
	ok, err := regexp.MatchString(pattern, fmt.Sprint(v))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("display id %v does not match %s", v, pattern)
	}
	return nil
}

func (s *certificateSteps) shouldWarnAboutDuplicate(ctx context.Context, existing, next int) error {
	count, err := s.tc.GetResponseField("duplicate.existing_count")
	if err != nil {
		return err
	}
	version, err := s.tc.GetResponseField("duplicate.next_version")
	if err != nil {
		return err
	}
	if count != float64(existing) || version != float64(next) {
		return fmt.Errorf("expected duplicate %d/%d, got %v/%v", existing, next, count, version)
	}
	return nil
}

func (s *certificateSteps) shouldNotWarn(ctx context.Context) error {
	v, err := s.tc.GetResponseField("duplicate")
	if err != nil {
		return err
	}
	if v != nil {
		return fmt.Errorf("expected no duplicate warning, got %v", v)
	}
	return nil
}

func (s *certificateSteps) editWithScores(ctx context.Context, name, date string, table *godog.Table) error {
	certID, err := s.tc.Recall(name + ".id")
	if err != nil {
		return err
	}
	scores, err := scoresFromTable(table)
	if err != nil {
		return err
	}
	return s.tc.PUT("/admin/certificates/"+url.PathEscape(certID), map[string]interface{}{
		"issue_date": date,
		"scores":     scores,
	})
}

func (s *certificateSteps) deleteCertificate(ctx context.Context, name string) error {
	certID, err := s.tc.Recall(name + ".id")
	if err != nil {
		return err
	}
	return s.tc.DELETE("/admin/certificates/" + url.PathEscape(certID))
}

func (s *certificateSteps) lookupSaved(ctx context.Context, name string) error {
	displayID, err := s.tc.Recall(name + ".display_id")
	if err != nil {
		return err
	}
	return s.lookupDisplayID(ctx, displayID)
}

func (s *certificateSteps) lookupDisplayID(ctx context.Context, displayID string) error {
	return s.tc.GET("/certificates/"+url.PathEscape(displayID), nil)
}

func (s *certificateSteps) lookupByNames(ctx context.Context, student, course string) error {
	q := url.Values{}
	q.Set("student", student)
	q.Set("course", course)
	return s.tc.GET("/certificates?"+q.Encode(), nil)
}

func (s *certificateSteps) listAll(ctx context.Context) error {
	return s.tc.AdminGET("/admin/certificates")
}

func (s *certificateSteps) auditTrail(ctx context.Context, name string) error {
	certID, err := s.tc.Recall(name + ".id")
	if err != nil {
		return err
	}
	return s.tc.AdminGET("/admin/certificates/" + url.PathEscape(certID) + "/audit")
}
