package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/frontendlab/testbot/utils"
)

const (
	TypeDeliverMessage = "message:deliver"
)

// MessageSender delivers one text message to a chat. The bot transport
// implements it; the indirection keeps this package off the Telegram API.
type MessageSender interface {
	SendText(chatID int64, text string) error
}

type JobManager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

// MessagePayload is one queued delivery. Broadcasts fan out to one task per
// recipient so a single blocked chat cannot stall the rest.
type MessagePayload struct {
	ChatID   int64             `json:"chat_id"`
	Text     string            `json:"text"`
	Kind     string            `json:"kind"`     // "broadcast", "admin_alert", "approval_notice", etc.
	Metadata map[string]string `json:"metadata"` // Extra data for logging/tracking
}

func NewJobManager(redisURL string) *JobManager {
	addr := strings.TrimPrefix(redisURL, "redis://")
	redisOpt := asynq.RedisClientOpt{
		Addr: addr,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6, // Admin alerts, approval notices
			"default":  3, // Completion notifications
			"low":      1, // Broadcasts
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			utils.LogError("Job failed: type=%s error=%v", task.Type(), err)
		}),
		Logger: &AsynqLogger{},
	})

	mux := asynq.NewServeMux()

	return &JobManager{
		client: client,
		server: server,
		mux:    mux,
	}
}

func (jm *JobManager) RegisterHandlers(sender MessageSender) {
	jm.mux.HandleFunc(TypeDeliverMessage, jm.handleDeliverMessage(sender))
}

func (jm *JobManager) Start() error {
	utils.LogStartup("Starting job queue worker...")
	return jm.server.Run(jm.mux)
}

func (jm *JobManager) Stop() {
	utils.LogShutdown("Stopping job queue...")
	jm.server.Stop()
	jm.server.Shutdown()
	jm.client.Close()
}

// QueueMessage enqueues one delivery with retry and timeout set per priority.
func (jm *JobManager) QueueMessage(chatID int64, text, kind string, metadata map[string]string, priority string) error {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	payload := MessagePayload{
		ChatID:   chatID,
		Text:     text,
		Kind:     kind,
		Metadata: metadata,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	task := asynq.NewTask(TypeDeliverMessage, payloadBytes)

	queue := "default"
	maxRetries := 3
	timeout := 60

	switch priority {
	case "critical":
		queue = "critical"
		maxRetries = 5
		timeout = 120
	case "low":
		queue = "low"
		maxRetries = 2
		timeout = 30
	}

	var opts []asynq.Option
	opts = append(opts, asynq.Queue(queue))
	opts = append(opts, asynq.MaxRetry(maxRetries))
	opts = append(opts, asynq.Timeout(time.Duration(timeout)*time.Second))

	info, err := jm.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue message task: %w", err)
	}

	utils.LogJobs("Queued message job: ID=%s kind=%s chat=%d priority=%s timeout=%ds",
		info.ID, kind, chatID, priority, timeout)
	return nil
}

// QueueBroadcast fans an announcement out to recipients, one task each.
func (jm *JobManager) QueueBroadcast(chatIDs []int64, text string, adminID int64) (queued int) {
	metadata := map[string]string{
		"admin_id": fmt.Sprintf("%d", adminID),
	}
	for _, chatID := range chatIDs {
		if err := jm.QueueMessage(chatID, text, "broadcast", metadata, "low"); err != nil {
			utils.LogError("Could not queue broadcast for chat %d: %v", chatID, err)
			continue
		}
		queued++
	}
	return queued
}

// QueueAdminAlert notifies the admin chat on the critical queue.
func (jm *JobManager) QueueAdminAlert(adminID int64, text string, metadata map[string]string) error {
	return jm.QueueMessage(adminID, text, "admin_alert", metadata, "critical")
}

// QueueApprovalNotice tells a user their registration was reviewed.
func (jm *JobManager) QueueApprovalNotice(chatID int64, text string) error {
	return jm.QueueMessage(chatID, text, "approval_notice", nil, "critical")
}

func (jm *JobManager) handleDeliverMessage(sender MessageSender) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload MessagePayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal message payload: %w", err)
		}

		utils.LogJobs("Processing message job: kind=%s chat=%d", payload.Kind, payload.ChatID)

		if err := sender.SendText(payload.ChatID, payload.Text); err != nil {
			metadataStr := ""
			for k, v := range payload.Metadata {
				metadataStr += fmt.Sprintf("%s=%s ", k, v)
			}

			return fmt.Errorf("failed to deliver %s message to chat %d (metadata: %s): %w",
				payload.Kind, payload.ChatID, metadataStr, err)
		}

		utils.LogJobs("Delivered %s message to chat %d", payload.Kind, payload.ChatID)
		return nil
	}
}

// Custom logger that routes asynq's output through the shared log format
type AsynqLogger struct{}

func (l *AsynqLogger) Debug(args ...interface{}) {
	utils.LogDebug(fmt.Sprint(args...))
}

func (l *AsynqLogger) Info(args ...interface{}) {
	utils.LogJobs(fmt.Sprint(args...))
}

func (l *AsynqLogger) Warn(args ...interface{}) {
	utils.LogWarn(fmt.Sprint(args...))
}

func (l *AsynqLogger) Error(args ...interface{}) {
	utils.LogError(fmt.Sprint(args...))
}

func (l *AsynqLogger) Fatal(args ...interface{}) {
	utils.LogError(fmt.Sprint(args...))
}
