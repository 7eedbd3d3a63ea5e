package ports

import "context"

// Review lifecycle event names published to a review's channel.
const (
	EventAnalysisComplete = "analysis-complete"
	EventNewFinding       = "new-finding"
	EventNewComment       = "new-comment"
)

// Publisher fans lifecycle events out to subscribers of a review-scoped
// channel. Delivery is best-effort to currently-connected listeners; the
// persisted review record is the durable source of truth.
type Publisher interface {
	Publish(ctx context.Context, channel string, event string, payload any)
}
