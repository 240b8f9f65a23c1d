package credential

import (
	"strings"
	"time"

	"github.com/vpbank/printer_monitor/pkg/printermonitor/poller"
)

// Candidate is one (version, community) pair to try against a device.
type Candidate struct {
	Version   poller.Version
	Community string
}

// String renders the candidate without the community, which is a secret.
func (c Candidate) String() string {
	return "v" + c.Version.String()
}

// Resolved is a candidate proven to work for an address.
type Resolved struct {
	Candidate
	ResolvedAt time.Time
}

// versions is the per-community try order.
var versions = [...]poller.Version{poller.V2c, poller.V1}

// Candidates builds the ordered candidate list: preferred first, then each
// known community, every community under V2c then V1. Duplicate
// (version, community) pairs are dropped; an empty preferred is ignored.
func Candidates(preferred string, known []string) []Candidate {
	communities := make([]string, 0, len(known)+1)
	if p := strings.TrimSpace(preferred); p != "" {
		communities = append(communities, p)
	}
	communities = append(communities, known...)

	seen := make(map[Candidate]struct{}, 2*len(communities))
	out := make([]Candidate, 0, 2*len(communities))
	for _, c := range communities {
		if c == "" {
			continue
		}
		for _, v := range versions {
			cand := Candidate{Version: v, Community: c}
			if _, dup := seen[cand]; dup {
				continue
			}
			seen[cand] = struct{}{}
			out = append(out, cand)
		}
	}
	return out
}
