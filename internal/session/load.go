package session

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/durgesh-ai/durgesh/internal/chat"
	"github.com/durgesh-ai/durgesh/internal/config"
	"github.com/durgesh-ai/durgesh/internal/resolver"
	"github.com/durgesh-ai/durgesh/internal/rules"
)

// LoadResolver loads the rule table named by cfg and builds a resolver
// over it.
func LoadResolver(cfg config.Config) (*resolver.Resolver, error) {
	table, err := rules.Load(cfg.Rules.Path, rules.Options{Strict: cfg.Rules.Strict})
	if err != nil {
		return nil, fmt.Errorf("unable to load rules: %w", err)
	}
	if dups := table.Duplicates(); len(dups) > 0 {
		log.Warn("Rule table has duplicate keys, the first rule wins", "path", cfg.Rules.Path, "count", len(dups))
	}

	choose, err := chat.ChooserByName(cfg.Chat.Chooser)
	if err != nil {
		return nil, err
	}

	res, err := resolver.FromTable(table, chat.WithChooser(choose))
	if err != nil {
		return nil, fmt.Errorf("unable to compile rules: %w", err)
	}

	log.Debug("Loaded rules", "path", cfg.Rules.Path, "rules", table.Len(), "keys", len(table.Keys()))
	return res, nil
}
