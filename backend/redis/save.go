package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cschleiden/go-dialogflow/backend"
	"github.com/cschleiden/go-dialogflow/core"
	redis "github.com/redis/go-redis/v9"
)

// Compare-and-set the state of a conversation
// KEYS[1] - conversation key
// KEYS[2] - conversations-by-creation key
// KEYS[3] - conversations-by-update key
// KEYS[4] - conversations-active key
// ARGV[1] - conversation id
// ARGV[2] - expected version, 0 if the conversation must not exist yet
// ARGV[3] - encoded dialog stack
// ARGV[4] - dialog stack depth
// ARGV[5] - creation timestamp in unix milliseconds, used when inserting
// ARGV[6] - current timestamp in unix milliseconds
// ARGV[7] - expiration in milliseconds, 0 to keep forever
//
// Returns the creation timestamp of the conversation or -1 if the expected version did not match.
var saveConversationCmd = redis.NewScript(
	`local current = redis.call("HGET", KEYS[1], "version")
	local expected = tonumber(ARGV[2])

	if current == false then
		if expected ~= 0 then
			return -1
		end
	elseif tonumber(current) ~= expected then
		return -1
	end

	local expiration = tonumber(ARGV[7])
	if expiration > 0 then
		-- Drop conversations whose keys already expired from the index sets
		local expired = redis.call("ZRANGEBYSCORE", KEYS[3], "-inf", "(" .. (tonumber(ARGV[6]) - expiration))
		for i = 1, #expired do
			redis.call("ZREM", KEYS[2], expired[i])
			redis.call("ZREM", KEYS[3], expired[i])
			redis.call("SREM", KEYS[4], expired[i])
		end
	end

	local createdAt = ARGV[5]
	if current == false then
		redis.call("HSET", KEYS[1], "created_at", createdAt)
		redis.call("ZADD", KEYS[2], createdAt, ARGV[1])
	else
		createdAt = redis.call("HGET", KEYS[1], "created_at")
	end

	redis.call("HSET", KEYS[1], "version", expected + 1, "stack", ARGV[3], "depth", ARGV[4], "updated_at", ARGV[6])
	redis.call("ZADD", KEYS[3], ARGV[6], ARGV[1])

	if tonumber(ARGV[4]) > 0 then
		redis.call("SADD", KEYS[4], ARGV[1])
	else
		redis.call("SREM", KEYS[4], ARGV[1])
	end

	if expiration > 0 then
		redis.call("PEXPIRE", KEYS[1], expiration)
	else
		redis.call("PERSIST", KEYS[1])
	end

	return tonumber(createdAt)
	`,
)

func (rb *redisBackend) SaveConversationState(ctx context.Context, state *core.ConversationState) error {
	stack, err := rb.options.Converter.To(state.DialogStack)
	if err != nil {
		return fmt.Errorf("encoding dialog stack: %w", err)
	}

	now := rb.options.Clock.Now().UTC().Truncate(time.Millisecond)

	createdAt := state.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	res, err := saveConversationCmd.Run(ctx, rb.rdb, []string{
		rb.keys.conversationKey(state.ConversationID),
		rb.keys.conversationsByCreation(),
		rb.keys.conversationsByUpdate(),
		rb.keys.conversationsActive(),
	},
		state.ConversationID,
		state.Version,
		[]byte(stack),
		len(state.DialogStack),
		createdAt.UnixMilli(),
		now.UnixMilli(),
		rb.options.AutoExpiration.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("saving conversation state: %w", err)
	}

	if res < 0 {
		return backend.ErrConflict
	}

	state.Version++
	state.CreatedAt = time.UnixMilli(res).UTC()
	state.UpdatedAt = now

	return nil
}
