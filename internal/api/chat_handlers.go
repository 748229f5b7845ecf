package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"goalcoach/internal/coach"
	"goalcoach/internal/models"
	"goalcoach/internal/store"

	"github.com/gofiber/fiber/v2"
)

const maxMessageLen = 4000

func CreateChatHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateChatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		goal, err := ownedGoal(c.Context(), s, currentUser(c), req.GoalID)
		if err != nil {
			return err
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = goal.Title
		}

		chat, err := s.CreateChat(c.Context(), goal.ID, title)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(chat)
	}
}

func GetChatHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		chat, err := ownedChat(c.Context(), s, currentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(chat)
	}
}

func DeleteChatHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedChat(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		if err := s.DeleteChat(c.Context(), id); err != nil {
			return storeError(err, "Chat")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListMessagesHandler returns the chat in order, markers included; the
// client renders them. ?limit=N keeps the newest N.
func ListMessagesHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedChat(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		msgs, err := s.ListMessages(c.Context(), id, c.QueryInt("limit", 0))
		if err != nil {
			return err
		}
		return c.JSON(msgs)
	}
}

func messageText(c *fiber.Ctx) (string, error) {
	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	text := strings.TrimSpace(req.Content)
	if text == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "Content is required")
	}
	if len([]rune(text)) > maxMessageLen {
		return "", fiber.NewError(fiber.StatusBadRequest, "Message is too long")
	}
	return text, nil
}

// PostMessageHandler stores a user message without asking the coach.
func PostMessageHandler(s *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if _, err := ownedChat(c.Context(), s, currentUser(c), id); err != nil {
			return err
		}
		text, err := messageText(c)
		if err != nil {
			return err
		}
		msg, err := s.AppendMessage(c.Context(), id, models.SenderUser, text)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}

// CoachReplyHandler runs one coached turn: the user's message goes in, the
// coach's reply and any actions waiting for confirmation come out.
func CoachReplyHandler(s *store.Store, o *coach.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		userID := currentUser(c)
		if _, err := ownedChat(c.Context(), s, userID, id); err != nil {
			return err
		}
		text, err := messageText(c)
		if err != nil {
			return err
		}

		reply, err := o.Respond(c.Context(), id, userID, text)
		if err != nil {
			return storeError(err, "Chat")
		}

		pending := reply.Pending
		if pending == nil {
			pending = []any{}
		}
		results := reply.Results
		if results == nil {
			results = []string{}
		}
		return c.JSON(models.ChatReplyResponse{
			UserMessage:    reply.UserMessage,
			AIMessage:      reply.AIMessage,
			PendingActions: pending,
			Results:        results,
			State:          string(reply.State),
		})
	}
}

type confirmRequest struct {
	Actions   []any `json:"actions"`
	MessageID *int  `json:"message_id"`
}

// confirmBody accepts {"actions": [...]}, {"message_id": n} or a bare array.
func confirmBody(body []byte) (confirmRequest, error) {
	var req confirmRequest
	body = bytes.TrimSpace(body)
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if len(body) > 0 && body[0] == '[' {
		err := dec.Decode(&req.Actions)
		return req, err
	}
	err := dec.Decode(&req)
	return req, err
}

// ConfirmActionsHandler executes actions the user approved from a pending
// list, either sent back by the client or read from the AI message that
// proposed them. The goal comes from the chat and the user from the token.
func ConfirmActionsHandler(s *store.Store, o *coach.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		userID := currentUser(c)
		if _, err := ownedChat(c.Context(), s, userID, id); err != nil {
			return err
		}

		req, err := confirmBody(c.Body())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		actions := req.Actions
		if req.MessageID != nil {
			msg, err := s.GetMessage(c.Context(), *req.MessageID)
			if err != nil || msg.ChatID != id {
				return fiber.NewError(fiber.StatusNotFound, "Message not found")
			}
			if len(actions) == 0 {
				actions, _ = coach.ParsePendingActions(msg.Content)
			}
		}
		if len(actions) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "No actions to confirm")
		}
		var verr *coach.ValidationError
		if err := coach.ValidateActions(actions); errors.As(err, &verr) {
			return fiber.NewError(fiber.StatusBadRequest, verr.Error())
		}

		// A proposal stored in a message runs at most once.
		if req.MessageID != nil {
			if err := s.ClaimPendingActions(c.Context(), *req.MessageID); err != nil {
				if errors.Is(err, store.ErrConflict) {
					return fiber.NewError(fiber.StatusConflict, "Actions already confirmed")
				}
				return storeError(err, "Message")
			}
		}

		conf, err := o.Confirm(c.Context(), id, userID, actions)
		if errors.As(err, &verr) {
			return fiber.NewError(fiber.StatusBadRequest, verr.Error())
		}
		if err != nil {
			return storeError(err, "Chat")
		}

		results := conf.Results
		if results == nil {
			results = []string{}
		}
		return c.JSON(models.ConfirmActionsResponse{
			Status:          "ok",
			Results:         results,
			MilestonesCount: conf.MilestonesCount,
		})
	}
}
