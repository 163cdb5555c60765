package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"viola-chatbot/internal/config"
	"viola-chatbot/internal/logger"
	"viola-chatbot/services"

	"github.com/hibiken/asynq"
)

const (
	TaskRebuildIndex = "index:rebuild"
	QueueIndex       = "index"
)

type RebuildIndexPayload struct {
	CorpusDir string `json:"corpus_dir"`
	RequestID string `json:"request_id,omitempty"`
}

// NewRebuildIndexTask creates a rebuild task. Only one rebuild per corpus
// folder can be pending at a time.
func NewRebuildIndexTask(corpusDir, requestID string) (*asynq.Task, error) {
	payload, err := json.Marshal(RebuildIndexPayload{
		CorpusDir: corpusDir,
		RequestID: requestID,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRebuildIndex,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(30*time.Minute),
		asynq.Queue(QueueIndex),
	), nil
}

// IndexRebuilder rebuilds the embeddings artifact for a corpus folder.
type IndexRebuilder interface {
	Build(ctx context.Context, folder string) (*services.VectorIndex, error)
}

// Task handlers
type TaskProcessor struct {
	builder    IndexRebuilder
	defaultDir string
}

func NewTaskProcessor(builder IndexRebuilder, defaultDir string) *TaskProcessor {
	return &TaskProcessor{builder: builder, defaultDir: defaultDir}
}

func (p *TaskProcessor) RebuildIndex(ctx context.Context, t *asynq.Task) error {
	var payload RebuildIndexPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	dir := payload.CorpusDir
	if dir == "" {
		dir = p.defaultDir
	}

	logger.Info("Rebuilding index", "corpus_dir", dir, "request_id", payload.RequestID)

	index, err := p.builder.Build(ctx, dir)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	logger.Info("Index rebuilt", "corpus_dir", dir, "entries", index.Len(), "request_id", payload.RequestID)
	return nil
}

// RedisConnOpt converts the Redis settings into asynq connection options.
func RedisConnOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opts, err := config.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}
