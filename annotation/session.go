package annotation

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	gocache "github.com/patrickmn/go-cache"
)

// Session scopes cached results to one user. Nothing is shared between sessions.
type Session struct {
	id    string
	cache *gocache.Cache
}

// NewSession creates a session with its own cache whose entries live for ttl.
func NewSession(ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Session{
		id:    uuid.NewString(),
		cache: gocache.New(ttl, 2*ttl),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Reset drops every cached entry.
func (s *Session) Reset() { s.cache.Flush() }

// Len returns the number of cached entries.
func (s *Session) Len() int { return s.cache.ItemCount() }

// key hashes the input together with length prefixed params.
func (s *Session) key(input []byte, params ...string) string {
	h := sha1.New()
	fmt.Fprintf(h, "%d:", len(input))
	h.Write(input)
	for _, p := range params {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return s.id + "|" + hex.EncodeToString(h.Sum(nil))
}

func (s *Session) getCheck(key string) (*CheckResult, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	res, ok := v.(*CheckResult)
	if !ok {
		return nil, false
	}
	return res.clone(), true
}

func (s *Session) putCheck(key string, res *CheckResult) {
	s.cache.SetDefault(key, res.clone())
}

func (r *CheckResult) clone() *CheckResult {
	out := *r
	out.CalibrationNames = append([]string(nil), r.CalibrationNames...)
	out.MissingCalibPts = append([]string(nil), r.MissingCalibPts...)
	out.Removed.MultiPolyLabels = append([]string(nil), r.Removed.MultiPolyLabels...)
	out.KindCounts = make(map[string]int, len(r.KindCounts))
	for k, v := range r.KindCounts {
		out.KindCounts[k] = v
	}
	if r.CalibrationFound != nil {
		out.CalibrationFound = make(map[string][]orb.Point, len(r.CalibrationFound))
		for k, v := range r.CalibrationFound {
			out.CalibrationFound[k] = append([]orb.Point(nil), v...)
		}
	}
	out.Shapes = make([]Shape, len(r.Shapes))
	for i, s := range r.Shapes {
		out.Shapes[i] = Shape{
			Feature:   s.Feature.clone(),
			ClassName: s.ClassName,
			Coords:    append([]orb.Point(nil), s.Coords...),
		}
	}
	if r.Report != nil {
		rep := *r.Report
		rep.Infos = append([]string(nil), r.Report.Infos...)
		rep.Warnings = append([]string(nil), r.Report.Warnings...)
		rep.Errors = append([]string(nil), r.Report.Errors...)
		out.Report = &rep
	}
	return &out
}
