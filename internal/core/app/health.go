package app

import "context"

// Health reports component states for the observability server.
func (a *App) Health(ctx context.Context) map[string]string {
	components := make(map[string]string)

	if a.parser != nil {
		components["parser"] = "ok"
	} else {
		components["parser"] = "missing"
	}

	if a.store != nil {
		if err := a.store.Ping(ctx); err != nil {
			components["store"] = "unreachable: " + err.Error()
		} else {
			components["store"] = "ok"
		}
	} else if a.Config.Store.Enabled {
		components["store"] = "missing but enabled in config"
	}

	return components
}
