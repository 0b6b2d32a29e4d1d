package healthcheck

import "github.com/turtacn/connprobe/internal/domain/connector"

// Summary counts the overall statuses of a report.
type Summary struct {
	Total       int              `json:"total"`
	OK          int              `json:"ok"`
	Degraded    int              `json:"degraded"`
	Unavailable int              `json:"unavailable"`
	Fallbacks   int              `json:"fallbacks"`
	Overall     connector.Status `json:"overall"`
}

// Serving reports whether no connector is unavailable. Degraded connectors
// still serve.
func (s Summary) Serving() bool { return s.Unavailable == 0 }

// Summarize folds r into a Summary. A nil or empty report is ok.
func Summarize(r *HealthReport) Summary {
	s := Summary{Overall: connector.StatusOK}
	if r == nil {
		return s
	}
	for _, h := range r.Results {
		s.Total++
		overall := h.Overall()
		switch overall {
		case connector.StatusOK:
			s.OK++
		case connector.StatusDegraded:
			s.Degraded++
		default:
			s.Unavailable++
		}
		if h.Fallback {
			s.Fallbacks++
		}
		s.Overall = s.Overall.Worse(overall)
	}
	return s
}

//Personal.AI order the ending
