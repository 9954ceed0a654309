package packp

import (
	"io"
	"strings"

	"github.com/nseba/gitcore/plumbing/format/pktline"
)

// ReportStatus is receive-pack's reply when report-status was negotiated
// (§4.8): one "unpack ok"/"unpack <error>" line, then one "ok <ref>" or
// "ng <ref> <reason>" line per command.
type ReportStatus struct {
	UnpackOK    bool
	UnpackError string
	CommandOK   map[string]bool
	CommandErr  map[string]string
}

// DecodeReportStatus parses the report, which itself arrives inside the
// side-band-1 channel when side-band was negotiated; the caller is
// responsible for demultiplexing before calling this.
func DecodeReportStatus(r io.Reader) (*ReportStatus, error) {
	pr := pktline.NewReader(r)
	out := &ReportStatus{CommandOK: map[string]bool{}, CommandErr: map[string]string{}}

	l, p, err := pr.ReadPacket()
	if err != nil {
		return nil, err
	}
	line := strings.TrimSpace(string(p))
	switch {
	case line == "unpack ok":
		out.UnpackOK = true
	case strings.HasPrefix(line, "unpack "):
		out.UnpackError = strings.TrimPrefix(line, "unpack ")
	}

	for {
		l, p, err = pr.ReadPacket()
		if err != nil {
			return nil, err
		}
		if l == pktline.Flush {
			break
		}
		line := strings.TrimSpace(string(p))
		fields := strings.SplitN(line, " ", 2)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "ok":
			out.CommandOK[fields[1]] = true
		case "ng":
			refAndReason := strings.SplitN(fields[1], " ", 2)
			name := refAndReason[0]
			reason := ""
			if len(refAndReason) > 1 {
				reason = refAndReason[1]
			}
			out.CommandErr[name] = reason
		}
	}

	return out, nil
}
