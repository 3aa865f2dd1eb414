package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// EnsureStream makes sure stream name exists and listens on subjects,
// adding any that are missing from an existing stream.
func EnsureStream(ctx context.Context, client *NatsBroker, name string, subjects []string) (jetstream.Stream, error) {
	stream, err := client.GetStream(ctx, name)
	if err != nil {
		if !errors.Is(err, jetstream.ErrStreamNotFound) {
			log.Error().Err(err).Str("stream", name).Msg("Failed to get stream")
			return nil, err
		}
		return client.CreateStream(ctx, jetstream.StreamConfig{
			Name:       name,
			Subjects:   subjects,
			Retention:  jetstream.LimitsPolicy,
			MaxAge:     notificationMaxAge,
			Duplicates: duplicateAfter,
		})
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}

	config := info.Config
	merged, missing := mergeSubjects(config.Subjects, subjects)
	if len(missing) == 0 {
		log.Debug().Str("stream", name).Msg("No new subjects to add to stream")
		return stream, nil
	}

	config.Subjects = merged
	log.Info().Strs("subjects", missing).Str("stream", name).Msg("Adding subjects to stream")
	return client.CreateStream(ctx, config)
}

// mergeSubjects returns existing plus the wanted subjects it lacks, and the
// subjects that were added.
func mergeSubjects(existing, wanted []string) ([]string, []string) {
	missing := lo.Uniq(lo.Without(wanted, existing...))
	return append(append([]string(nil), existing...), missing...), missing
}
