package queue

func (q *QueueService) GetQueueStats() map[string]interface{} {
	batches := q.Batches()

	processing, jobs := 0, 0
	for _, b := range batches {
		snap := b.Snapshot()
		if snap.Processing {
			processing++
		}
		jobs += len(snap.Jobs)
	}

	stats := map[string]interface{}{
		"batches":    len(batches),
		"processing": processing,
		"jobs":       jobs,
	}

	if p, ok := q.publisher.(interface {
		Stats() (map[string]interface{}, error)
	}); ok {
		if brokerStats, err := p.Stats(); err == nil {
			stats["broker"] = brokerStats
		}
	}
	return stats
}
