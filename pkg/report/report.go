package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"launcher/pkg/common"
	"launcher/pkg/schema"
)

//go:embed schema.json
var SchemaJSON string

var validator = schema.New("report.schema.json", SchemaJSON)


type xmlSuites struct {
	XMLName  xml.Name `xml:"testsuites"`
	Tests    int      `xml:"tests,attr"`
	Time     string   `xml:"time,attr"`
	Failures int      `xml:"failures,attr"`
	Errors   int      `xml:"errors,attr"`
	Suite    xmlSuite `xml:"testsuite"`
}

type xmlSuite struct {
	ID        int       `xml:"id,attr"`
	Name      string    `xml:"name,attr,omitempty"`
	Tests     int       `xml:"tests,attr"`
	Time      string    `xml:"time,attr"`
	Timestamp string    `xml:"timestamp,attr"`
	Failures  int       `xml:"failures,attr"`
	Errors    int       `xml:"errors,attr"`
	Cases     []xmlCase `xml:"testcase"`
}

type xmlCase struct {
	Name    string      `xml:"name,attr"`
	Time    string      `xml:"time,attr"`
	Failure *xmlProblem `xml:"failure,omitempty"`
	Error   *xmlProblem `xml:"error,omitempty"`
}

type xmlProblem struct {
	Type    Status `xml:"type,attr"`
	Message string `xml:",chardata"`
}

// Parse validates and decodes a JSON report.
func Parse(b []byte) (*Report, error) {
	if err := validator.Validate(b); err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, common.Malformedf("test report: %v", err)
	}
	return &r, nil
}

// Marshal renders r as an XML document.
func (r *Report) Marshal(name string) ([]byte, error) {
	sum := r.Summarize()
	elapsed := r.Elapsed.String()
	doc := xmlSuites{
		Tests:    sum.Total,
		Time:     elapsed,
		Failures: sum.Failures,
		Errors:   sum.Errors,
		Suite: xmlSuite{
			ID:        0,
			Name:      name,
			Tests:     sum.Total,
			Time:      elapsed,
			Timestamp: formatTimestamp(r.StartTime),
			Failures:  sum.Failures,
			Errors:    sum.Errors,
		},
	}
	for _, t := range r.Tests {
		c := xmlCase{Name: t.Name, Time: t.Elapsed.String()}
		if !t.Expected {
			p := &xmlProblem{Type: t.Status, Message: t.Message}
			if t.Status == StatusFailed {
				c.Failure = p
			} else {
				c.Error = p
			}
		}
		doc.Suite.Cases = append(doc.Suite.Cases, c)
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding XML report: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Convert reads a JSON report from jsonData and writes the XML report to w.
func Convert(jsonData []byte, name string, w io.Writer) (*Report, error) {
	r, err := Parse(jsonData)
	if err != nil {
		return nil, err
	}
	b, err := r.Marshal(name)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(b); err != nil {
		return nil, fmt.Errorf("writing XML report: %w", err)
	}
	return r, nil
}

// ConvertFile converts jsonData into a new file at xmlPath. The file must
// not exist yet.
func ConvertFile(jsonData []byte, name, xmlPath string) error {
	// Parse before creating the output so malformed input leaves nothing behind.
	r, err := Parse(jsonData)
	if err != nil {
		return err
	}
	b, err := r.Marshal(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(xmlPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &common.OSError{Op: "open", Path: xmlPath, Err: err}
	}
	_, werr := f.Write(b)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return &common.OSError{Op: "write", Path: xmlPath, Err: err}
	}
	sum := r.Summarize()
	slog.Debug("wrote test report", "path", xmlPath, "tests", sum.Total,
		"failures", sum.Failures, "errors", sum.Errors, "size", humanize.Bytes(uint64(len(b))))
	return nil
}

// formatTimestamp renders t in UTC as RFC 3339, using the shortest of 0, 3,
// 6 or 9 fractional digits that represents it exactly.
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	layout := "2006-01-02T15:04:05"
	switch ns := t.Nanosecond(); {
	case ns == 0:
	case ns%1_000_000 == 0:
		layout += ".000"
	case ns%1_000 == 0:
		layout += ".000000"
	default:
		layout += ".000000000"
	}
	return t.Format(layout + "Z")
}
