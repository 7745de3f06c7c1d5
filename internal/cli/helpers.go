package cli

import (
	"fmt"

	"github.com/trendscout-net/trendscout/internal/daemon"
	"github.com/trendscout-net/trendscout/internal/domain"
)

// shortID abbreviates a task id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTask finds a local task by full id or unique id prefix.
func resolveTask(d *daemon.Daemon, idOrPrefix string) (*domain.Task, error) {
	if task, err := d.Service.Get(idOrPrefix, localOwner); err == nil {
		return task, nil
	}

	list, err := d.Service.List(localOwner)
	if err != nil {
		return nil, err
	}
	var match *domain.Task
	for i := range list {
		if len(idOrPrefix) >= 4 && len(list[i].ID) >= len(idOrPrefix) &&
			list[i].ID[:len(idOrPrefix)] == idOrPrefix {
			if match != nil {
				return nil, fmt.Errorf("prefix %q matches more than one task", idOrPrefix)
			}
			match = &list[i]
		}
	}
	if match == nil {
		return nil, domain.ErrTaskNotFound
	}
	return match, nil
}
