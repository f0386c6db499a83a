package usecase_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"jeeptrack-service/internal/domain/entity"
	repo "jeeptrack-service/internal/interface/repository"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
)

func TestSubscribeIsIdempotent(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	req := usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1", Preference: entity.PreferenceAll}

	first, err := f.registry.Subscribe(f.ctx, req)
	c.Assert(err, qt.IsNil)
	f.clock.Advance(time.Minute)
	second, err := f.registry.Subscribe(f.ctx, req)
	c.Assert(err, qt.IsNil)
	c.Assert(second.UpdatedAt, qt.Equals, first.UpdatedAt)

	subs, err := f.registry.ListSubscribers(f.ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 1)

	// A changed preference updates the one record in place.
	req.Preference = entity.PreferenceArrivalsOnly
	req.CheckpointID = "c"
	updated, err := f.registry.Subscribe(f.ctx, req)
	c.Assert(err, qt.IsNil)
	c.Assert(updated.CreatedAt, qt.Equals, first.CreatedAt)
	c.Assert(updated.UpdatedAt.After(first.UpdatedAt), qt.IsTrue)

	subs, err = f.registry.ListSubscribers(f.ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 1)
	c.Assert(subs[0].Preference, qt.Equals, entity.PreferenceArrivalsOnly)

	c.Assert(f.registry.Unsubscribe(f.ctx, "p1", "r1"), qt.IsNil)
	err = f.registry.Unsubscribe(f.ctx, "p1", "r1")
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)

	subs, err = f.registry.ListSubscribers(f.ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 0)
}

func TestUnsubscribeRemovesOnlyOne(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.subscribe("p1", "r1", entity.PreferenceAll, "")
	f.subscribe("p1", "r2", entity.PreferenceAll, "")
	f.subscribe("p2", "r1", entity.PreferenceAll, "")

	c.Assert(f.registry.Unsubscribe(f.ctx, "p1", "r1"), qt.IsNil)

	mine, err := f.registry.ListByPassenger(f.ctx, "p1")
	c.Assert(err, qt.IsNil)
	c.Assert(mine, qt.HasLen, 1)
	c.Assert(mine[0].RouteID, qt.Equals, "r2")

	subs, err := f.registry.ListSubscribers(f.ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 1)
	c.Assert(subs[0].PassengerID, qt.Equals, "p2")
}

func TestSubscribeValidation(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	_, err := f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{RouteID: "r1"})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)

	_, err = f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1", Preference: "sometimes"})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)

	_, err = f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r404"})
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)

	_, err = f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1", CheckpointID: "x"})
	c.Assert(errors.Is(err, entity.ErrInvalidCheckpoint), qt.IsTrue)

	_, err = f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1", CheckpointID: "nowhere"})
	c.Assert(errors.Is(err, errors.NotFound), qt.IsTrue)

	sub, err := f.registry.Subscribe(f.ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1"})
	c.Assert(err, qt.IsNil)
	c.Assert(sub.Preference, qt.Equals, entity.PreferenceAll)
}

func TestMatchSubscribersNarrowing(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.subscribe("all", "r1", entity.PreferenceAll, "")
	f.subscribe("all-until-c", "r1", entity.PreferenceAll, "c")
	f.subscribe("arrivals", "r1", entity.PreferenceArrivalsOnly, "")
	f.subscribe("arrival-at-c", "r1", entity.PreferenceArrivalsOnly, "c")
	f.subscribe("other-route", "r2", entity.PreferenceAll, "")

	seq, err := f.directory.GetCheckpointSequence(f.ctx, "r1")
	c.Assert(err, qt.IsNil)
	at := func(id string) entity.Checkpoint {
		cp, ok := seq.Find(id)
		c.Assert(ok, qt.IsTrue)
		return cp
	}
	route := entity.Route{ID: "r1", Name: "Cubao - Divisoria"}

	tests := []struct {
		name  string
		event entity.Event
		want  []string
	}{{
		name:  "advance to b",
		event: entity.Event{Type: entity.EventCheckpointAdvance, Route: route, Checkpoint: at("b")},
		want:  []string{"all", "all-until-c", "arrivals"},
	}, {
		name:  "advance to c",
		event: entity.Event{Type: entity.EventCheckpointAdvance, Route: route, Checkpoint: at("c")},
		want:  []string{"all", "all-until-c", "arrival-at-c", "arrivals"},
	}, {
		name:  "advance past c",
		event: entity.Event{Type: entity.EventCheckpointAdvance, Route: route, Checkpoint: at("d")},
		want:  []string{"all", "arrivals"},
	}, {
		name: "restart back at a",
		event: entity.Event{
			Type:       entity.EventCheckpointAdvance,
			Route:      route,
			Checkpoint: at("a"),
			Previous:   &entity.DriverLocationRecord{CheckpointID: "d", SequenceIndex: 4, TripEpoch: 1},
			Current:    &entity.DriverLocationRecord{CheckpointID: "a", SequenceIndex: 1, TripEpoch: 2},
		},
		want: []string{"all", "all-until-c", "arrivals"},
	}, {
		name:  "shift start without checkpoint",
		event: entity.Event{Type: entity.EventShiftStart, Route: route},
		want:  []string{"all", "all-until-c"},
	}, {
		name:  "shift end",
		event: entity.Event{Type: entity.EventShiftEnd, Route: route, Checkpoint: at("d")},
		want:  []string{"all", "all-until-c"},
	}}

	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			event := test.event
			subs, err := f.registry.MatchSubscribers(f.ctx, &event)
			c.Assert(err, qt.IsNil)
			var got []string
			for _, s := range subs {
				got = append(got, s.PassengerID)
			}
			c.Assert(got, qt.DeepEquals, test.want)
		})
	}
}

func TestSubscribersSharedAcrossRegistries(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	clk := testclock.NewClock(t0)
	dir := testDirectory(c)
	shared := repo.NewMemorySubscriptionRepository()
	a := usecase.NewSubscriptionRegistry(shared, dir, clk, logger.NewNopLogger())
	b := usecase.NewSubscriptionRegistry(shared, dir, clk, logger.NewNopLogger())

	subs, err := b.ListSubscribers(ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 0)

	_, err = a.Subscribe(ctx, usecase.SubscribeRequest{PassengerID: "p1", RouteID: "r1"})
	c.Assert(err, qt.IsNil)

	clk.Advance(time.Minute)
	subs, err = b.ListSubscribers(ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 1)
	c.Assert(subs[0].PassengerID, qt.Equals, "p1")

	c.Assert(a.Unsubscribe(ctx, "p1", "r1"), qt.IsNil)
	clk.Advance(time.Minute)
	subs, err = b.ListSubscribers(ctx, "r1")
	c.Assert(err, qt.IsNil)
	c.Assert(subs, qt.HasLen, 0)
}
