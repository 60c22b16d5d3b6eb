// Package scheduler runs the time-driven side of the engine: scheduled
// follow-ups and the stale-conversation reaper.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRelanceSend = "conversation.relance.send"

// RelanceSendPayload identifies one scheduled follow-up. Attempt is the
// 1-based attempt number the dispatcher observed; the worker re-validates
// against the live snapshot before sending.
type RelanceSendPayload struct {
	ConversationID string `json:"conversationId"`
	Attempt        int    `json:"attempt"`
}

func NewRelanceSendTask(payload RelanceSendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRelanceSend, data), nil
}

func ParseRelanceSendPayload(task *asynq.Task) (RelanceSendPayload, error) {
	var payload RelanceSendPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RelanceSendPayload{}, err
	}
	return payload, nil
}
