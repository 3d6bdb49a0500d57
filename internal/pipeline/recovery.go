package pipeline

import (
	"context"

	"podpirate/internal/logging"
	"podpirate/internal/store"
)

// recover rolls episodes a crashed worker left mid-stage back to the nearest
// durable boundary, then reseeds the queues. Detection and processing rest at
// their own status because their inputs (transcript, ad segments, audio file)
// all survive a restart, so they simply resubmit in place.
func (o *Orchestrator) recover(ctx context.Context) error {
	rollbacks := map[store.Status]store.Status{
		store.StatusDownloading:  store.StatusPending,
		store.StatusTranscribing: store.StatusDownloaded,
	}
	for from, to := range rollbacks {
		episodes, err := o.store.EpisodesByStatus(ctx, from)
		if err != nil {
			return err
		}
		for _, episode := range episodes {
			episode.Status = to
			if to == store.StatusPending {
				episode.LocalAudioPath = ""
			}
			episode.ErrorMessage = ""
			if err := o.store.UpdateEpisode(ctx, episode); err != nil {
				return err
			}
			o.logger.Info("recovered interrupted episode",
				logging.Int64(logging.FieldEpisodeID, episode.ID),
				logging.String(logging.FieldStatus, string(to)))
		}
	}

	o.Sweep(ctx)
	return nil
}
