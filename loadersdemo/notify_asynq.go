package loadersdemo

import (
	"context"
	"encoding/json"

	hibasynq "github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/everyday-items/loadq/infra/queue/asynq"
	"github.com/everyday-items/loadq/loader"
	"github.com/everyday-items/loadq/util/config"
)

const notifyHandlerClass loader.HandlerClass = "asynq_notify"

// EnqueueNotification is a pending "send this notification" task. Its
// result, once satisfied, is the enqueued task's id.
type EnqueueNotification struct {
	loader.Base
	UserID  int64
	Message string
}

func (f *EnqueueNotification) HandlerClass() loader.HandlerClass { return notifyHandlerClass }

// NewEnqueueNotification injects an EnqueueNotification future into q.
// It intentionally keeps the default InstanceKey (a unique token per
// instance): two distinct notifications to the same user are still
// two distinct deliveries and must not coalesce.
func NewEnqueueNotification(q *loader.Queue, userID int64, message string) *EnqueueNotification {
	return loader.Inject(q, &EnqueueNotification{UserID: userID, Message: message})
}

// AsyncEnqueueHandler resolves EnqueueNotification futures by
// submitting each as an asynq task. Unlike the read-path handlers,
// there is nothing to batch into one round trip; instead it fans the
// group's enqueue calls out concurrently via errgroup and satisfies
// each future with its task id once the whole group has been
// submitted, so SatisfyMulti still returns only after every member of
// its group is resolved.
type AsyncEnqueueHandler struct {
	Manager  *asynq.Manager
	TaskType string
	ctx      context.Context
}

// NewAsyncEnqueueHandler builds a handler bound to manager, which
// enqueues tasks of type taskType.
func NewAsyncEnqueueHandler(ctx context.Context, manager *asynq.Manager, taskType string) *AsyncEnqueueHandler {
	return &AsyncEnqueueHandler{Manager: manager, TaskType: taskType, ctx: ctx}
}

func (h *AsyncEnqueueHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, _ loader.BatchingKey) error {
	g, ctx := errgroup.WithContext(h.ctx)

	maxRetry := config.Global().GetIntDefault("loadersdemo.asynq_max_retry", 3)

	for _, qf := range group {
		en := qf.(*EnqueueNotification)
		g.Go(func() error {
			payload, err := json.Marshal(map[string]any{
				"user_id": en.UserID,
				"message": en.Message,
			})
			if err != nil {
				return err
			}
			info, err := h.Manager.EnqueueTask(ctx, h.TaskType, payload, hibasynq.MaxRetry(maxRetry))
			if err != nil {
				return err
			}
			return en.Satisfy(info.ID)
		})
	}

	return g.Wait()
}
