package scoring

import (
	"context"

	"github.com/soniclint/soniclint/internal/notify"
)

// Intake couples the segment manager to the scoring queue. Each
// segment-created event is enqueued for scoring first, under the
// coordinator's backpressure policy, and only then fanned out to bus
// subscribers, so delivery into scoring never depends on a subscriber
// keeping up.
type Intake struct {
	coord *Coordinator
	pub   notify.Publisher
}

var _ notify.Publisher = (*Intake)(nil)

// NewIntake routes segment-created delivery through coord before fanning out
// to pub.
func NewIntake(coord *Coordinator, pub notify.Publisher) *Intake {
	return &Intake{coord: coord, pub: pub}
}

// PublishSegmentCreated enqueues ev for scoring and then forwards it to the
// fan-out publisher. An enqueue failure is returned before fan-out so the
// caller counts exactly one failed delivery.
func (in *Intake) PublishSegmentCreated(ctx context.Context, ev notify.SegmentCreated) error {
	if err := in.coord.Enqueue(ctx, ev); err != nil {
		return err
	}
	return in.pub.PublishSegmentCreated(ctx, ev)
}

// PublishScoresComputed forwards ev to the fan-out publisher unchanged.
func (in *Intake) PublishScoresComputed(ctx context.Context, ev notify.ScoresComputed) error {
	return in.pub.PublishScoresComputed(ctx, ev)
}
