// Package dispatch runs the reminder cycle: it matches opted-in users'
// localities against today's prayer times and fans out inbox records and
// web push messages for every event whose window contains "now".
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vakit-notify/internal/metrics"
	"vakit-notify/internal/models"
	"vakit-notify/internal/prayer"
	"vakit-notify/internal/push"
	"vakit-notify/internal/store"
)

// ErrUpstreamListing is returned when the opted-in profiles cannot be read.
// Nothing has been sent when Run returns it.
var ErrUpstreamListing = errors.New("list opted-in profiles")

type ProfileLister interface {
	ListOptedInProfiles(ctx context.Context) ([]models.Profile, error)
}

type RecordAppender interface {
	AppendNotification(ctx context.Context, rec models.NotificationRecord) (models.NotificationRecord, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, sub models.PushSubscription, payload models.PushPayload) push.Result
}

// Cycle holds the collaborators of one dispatch run. Claims may be nil, in
// which case every matched event fires on every run that observes it.
type Cycle struct {
	Profiles      ProfileLister
	Subscriptions store.SubscriptionRegistry
	Records       RecordAppender
	Times         prayer.TimeSource
	Resolver      *prayer.Resolver
	Push          Deliverer
	Claims        store.DispatchClaimer

	DedupeTTL    time.Duration
	FetchTimeout time.Duration
	Workers      int
	URL          string
	Icon         string

	Log zerolog.Logger
}

type Processed struct {
	City  string            `json:"city"`
	Vakit string            `json:"vakit"`
	Type  prayer.WindowType `json:"type"`
}

type Deliveries struct {
	Delivered int `json:"delivered"`
	Transient int `json:"transient"`
	Removed   int `json:"removed"`
}

// Report summarises one run. CityCount counts localities whose times were
// obtained; the rest are listed in SkippedCities.
type Report struct {
	Success           bool        `json:"success"`
	Processed         []Processed `json:"processed"`
	CityCount         int         `json:"cityCount"`
	NotificationCount int         `json:"notificationCount"`
	SkippedCities     []string    `json:"skippedCities"`
	Deliveries        Deliveries  `json:"deliveries"`
}

type group struct {
	loc   prayer.Locality
	users []string

	day   models.Date
	times []models.PrayerTime
	err   error
}

// Run executes one cycle at instant now. Only a profile listing failure is
// fatal; a bad locality, record write or delivery is logged and skipped.
func (c *Cycle) Run(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	profiles, err := c.Profiles.ListOptedInProfiles(ctx)
	if err != nil {
		metrics.CycleRuns.WithLabelValues("failed").Inc()
		c.Log.Error().Err(err).Msg("listing opted-in profiles failed")
		return Report{}, fmt.Errorf("%w: %v", ErrUpstreamListing, err)
	}

	rep := Report{Success: true, Processed: []Processed{}, SkippedCities: []string{}}
	groups := c.partition(profiles, &rep)
	c.fetchAll(ctx, groups, now)

	for _, g := range groups {
		if g.err != nil {
			metrics.LocalitiesSkipped.Inc()
			rep.SkippedCities = append(rep.SkippedCities, g.loc.Name)
			c.Log.Warn().Err(g.err).Str("city", g.loc.Name).Msg("skipping locality")
			continue
		}
		rep.CityCount++
		c.evaluate(ctx, g, now, &rep)
	}

	metrics.CycleRuns.WithLabelValues("ok").Inc()
	c.Log.Info().
		Int("cities", rep.CityCount).
		Int("skipped", len(rep.SkippedCities)).
		Int("events", len(rep.Processed)).
		Int("notifications", rep.NotificationCount).
		Int("delivered", rep.Deliveries.Delivered).
		Int("removed", rep.Deliveries.Removed).
		Msg("dispatch cycle finished")
	return rep, nil
}

// partition groups users by locality key in first-seen order. Blank cities
// are ignored; cities that fail to resolve are reported as skipped.
func (c *Cycle) partition(profiles []models.Profile, rep *Report) []*group {
	var groups []*group
	byKey := make(map[string]*group)
	for _, p := range profiles {
		key := prayer.Key(p.City)
		if key == "" {
			continue
		}
		if g, ok := byKey[key]; ok {
			g.users = append(g.users, p.ID)
			continue
		}
		loc, err := c.Resolver.Resolve(p.City)
		g := &group{loc: loc, users: []string{p.ID}, err: err}
		if err != nil {
			g.loc.Name = p.City
		}
		byKey[key] = g
		groups = append(groups, g)
	}
	return groups
}

// fetchAll loads each locality's schedule once, with at most Workers
// requests in flight.
func (c *Cycle) fetchAll(ctx context.Context, groups []*group, now time.Time) {
	workers := c.Workers
	if workers <= 0 {
		workers = 4
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, g := range groups {
		if g.err != nil {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(g *group) {
			defer wg.Done()
			defer func() { <-sem }()
			g.day = models.DateOf(now.In(g.loc.Location))
			g.times, g.err = c.fetch(ctx, g.loc, g.day)
		}(g)
	}
	wg.Wait()
}

func (c *Cycle) fetch(ctx context.Context, loc prayer.Locality, day models.Date) ([]models.PrayerTime, error) {
	if c.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.FetchTimeout)
		defer cancel()
	}
	times, err := c.Times.Times(ctx, loc, day)
	if err != nil {
		if !errors.Is(err, prayer.ErrLocalityUnresolved) {
			err = fmt.Errorf("%w: %s: %v", prayer.ErrLocalityUnresolved, loc.Name, err)
		}
		return nil, err
	}
	if err := prayer.Validate(times); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", prayer.ErrLocalityUnresolved, loc.Name, err)
	}
	return times, nil
}

func (c *Cycle) evaluate(ctx context.Context, g *group, now time.Time, rep *Report) {
	nowMinute := prayer.MinuteOfDay(now, g.loc.Location)
	for _, pt := range g.times[:len(models.PrayerNames)] {
		eventMinute, _ := prayer.ParseClock(pt.Saat)
		wt := prayer.Classify(eventMinute, nowMinute)
		if wt == prayer.WindowNone {
			continue
		}

		key := fmt.Sprintf("%s:%s:%s:%s", g.loc.Key, prayer.Key(pt.Vakit), g.day, wt)
		if !c.claim(ctx, key) {
			metrics.NotificationsDeduped.Inc()
			c.Log.Info().Str("key", key).Msg("reminder already dispatched")
			continue
		}

		rep.Processed = append(rep.Processed, Processed{City: g.loc.Name, Vakit: pt.Vakit, Type: wt})
		payload := c.compose(g.loc, pt, wt, eventMinute-nowMinute)
		for _, userID := range g.users {
			rep.NotificationCount++
			metrics.NotificationsFired.WithLabelValues(string(wt)).Inc()
			c.fanOut(ctx, userID, payload, &rep.Deliveries)
		}
	}
}

// claim reports whether the event should fire. Claim errors let it through.
func (c *Cycle) claim(ctx context.Context, key string) bool {
	if c.Claims == nil {
		return true
	}
	ok, err := c.Claims.ClaimDispatch(ctx, key, c.DedupeTTL)
	if err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("dedupe claim failed; dispatching anyway")
		return true
	}
	return ok
}

func (c *Cycle) compose(loc prayer.Locality, pt models.PrayerTime, wt prayer.WindowType, minutesLeft int) models.PushPayload {
	p := models.PushPayload{Icon: c.Icon, URL: c.URL}
	switch wt {
	case prayer.WindowExact:
		p.Title = fmt.Sprintf("%s Vakti", pt.Vakit)
		p.Body = fmt.Sprintf("%s için %s vakti girdi (%s).", loc.Name, pt.Vakit, pt.Saat)
	case prayer.WindowPreWarning:
		p.Title = fmt.Sprintf("%s Vakti Yaklaşıyor", pt.Vakit)
		p.Body = fmt.Sprintf("%s için %s vaktine %d dakika kaldı (%s).", loc.Name, pt.Vakit, minutesLeft, pt.Saat)
	}
	return p
}

// fanOut writes the inbox record and pushes to every subscription of the
// user. A failed record write does not stop delivery.
func (c *Cycle) fanOut(ctx context.Context, userID string, payload models.PushPayload, d *Deliveries) {
	log := c.Log.With().Str("user", userID).Logger()

	_, err := c.Records.AppendNotification(ctx, models.NotificationRecord{
		UserID: userID,
		Title:  payload.Title,
		Body:   payload.Body,
		URL:    payload.URL,
	})
	if err != nil {
		metrics.RecordFailures.Inc()
		log.Warn().Err(err).Msg("notification record write failed")
	}

	subs, err := c.Subscriptions.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("listing push subscriptions failed")
		return
	}
	for _, sub := range subs {
		res := c.Push.Deliver(ctx, sub, payload)
		metrics.PushDeliveries.WithLabelValues(res.Outcome.String()).Inc()
		switch res.Outcome {
		case push.Delivered:
			d.Delivered++
		case push.Permanent:
			if err := c.Subscriptions.DeleteSubscription(ctx, sub.Endpoint); err != nil {
				log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("removing expired subscription failed")
				continue
			}
			d.Removed++
			log.Info().Int("status", res.StatusCode).Str("endpoint", sub.Endpoint).Msg("removed expired subscription")
		default:
			d.Transient++
			log.Warn().Err(res.Err).Int("status", res.StatusCode).Str("endpoint", sub.Endpoint).Msg("push delivery failed")
		}
	}
}
