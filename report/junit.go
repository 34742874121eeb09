// Package report writes testbench verdicts as JUnit XML, the format CI
// systems read test results from.
package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/sarchlab/rtltb/tb"
)

// DefaultFile is the file name CI jobs look for.
const DefaultFile = "results.xml"

// Property is a name-value pair attached to a test case.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Problem describes why a test case did not pass.
type Problem struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// TestCase is the XML form of one verdict.
type TestCase struct {
	Name       string     `xml:"name,attr"`
	Classname  string     `xml:"classname,attr"`
	Time       float64    `xml:"time,attr"`
	Properties []Property `xml:"properties>property,omitempty"`
	Failure    *Problem   `xml:"failure,omitempty"`
	Error      *Problem   `xml:"error,omitempty"`
}

// TestSuite groups the test cases of one JUnit report.
type TestSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Time      float64    `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

type testSuites struct {
	XMLName xml.Name    `xml:"testsuites"`
	Suites  []TestSuite `xml:"testsuite"`
}

// JUnit collects verdicts into a test suite.
type JUnit struct {
	lock  sync.Mutex
	suite TestSuite
}

// NewJUnit creates an empty report for the named suite.
func NewJUnit(suite string) *JUnit {
	return &JUnit{suite: TestSuite{Name: suite}}
}

// Add records a verdict. A non-nil runErr marks a run that aborted, which is
// reported as an error rather than a failure.
func (j *JUnit) Add(v tb.Verdict, runErr error) {
	tc := TestCase{
		Name:      v.Name,
		Classname: j.suite.Name,
		Time:      v.WallTime.Seconds(),
		Properties: []Property{
			{Name: "sim_time", Value: v.SimTime.String()},
			{Name: "expected", Value: fmt.Sprint(v.Stats.Expected)},
			{Name: "received", Value: fmt.Sprint(v.Stats.Received)},
			{Name: "matched", Value: fmt.Sprint(v.Stats.Matched)},
			{Name: "errors", Value: fmt.Sprint(v.Stats.Errors)},
		},
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	switch {
	case runErr != nil:
		tc.Error = &Problem{
			Type:    "error",
			Message: runErr.Error(),
			Text:    fmt.Sprintf("%+v", runErr),
		}
		j.suite.Errors++
	case !v.Passed:
		tc.Failure = &Problem{
			Type:    "failure",
			Message: v.Reason,
			Text:    v.String(),
		}
		j.suite.Failures++
	}

	j.suite.Tests++
	j.suite.Time += tc.Time
	j.suite.TestCases = append(j.suite.TestCases, tc)
}

// Suite returns a copy of the collected suite.
func (j *JUnit) Suite() TestSuite {
	j.lock.Lock()
	defer j.lock.Unlock()

	s := j.suite
	s.TestCases = append([]TestCase(nil), j.suite.TestCases...)

	return s
}

// Write encodes the report.
func (j *JUnit) Write(w io.Writer) error {
	_, err := io.WriteString(w, xml.Header)
	if err != nil {
		return errors.Wrap(err, "write junit report")
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	err = enc.Encode(testSuites{Suites: []TestSuite{j.Suite()}})
	if err != nil {
		return errors.Wrap(err, "encode junit report")
	}

	_, err = io.WriteString(w, "\n")

	return err
}

// WriteFile writes the report to path, replacing the file if it exists.
func (j *JUnit) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	err = j.Write(f)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
