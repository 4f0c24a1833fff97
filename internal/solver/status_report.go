package solver

import (
	"time"

	"captchad/internal/imaging"
	"captchad/pkg/types"
)

// State returns the outcome of the most recent Initialize call.
func (s *Service) State() State { return s.load.Load().state }

// Status builds a detailed status response for /status.
func (s *Service) Status() types.StatusResponse {
	li := s.load.Load()
	t := imaging.NewTransform(s.height, s.width)
	now := time.Now()
	resp := types.StatusResponse{
		State:           string(li.state),
		ModelPath:       li.path,
		LastError:       li.err,
		InputHeight:     t.Height,
		InputWidth:      t.Width,
		NumClasses:      s.tok.NumClasses(),
		LoadsTotal:      s.loads.Load(),
		InferencesTotal: s.infers.Load(),
		FailuresTotal:   s.failures.Load(),
		UptimeSeconds:   int64(now.Sub(s.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
	}
	if h := s.cur.Load(); h != nil {
		resp.LoadedAtUnix = h.loadedAt.Unix()
	}
	return resp
}
