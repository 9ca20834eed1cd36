package indexmgr

import (
	"context"
	"fmt"
)

// DatasetStatus is one (type, dataset) pyramid's published state, shaped
// after the teacher's Statistics/BoundaryStats reporting pattern
// generalized from OSM-table counts to index/alias counts (spec §13).
type DatasetStatus struct {
	DocType      string `json:"doc_type"`
	Dataset      string `json:"dataset"`
	Alias        string `json:"alias"`
	ConcreteIndex string `json:"concrete_index"`
}

// StatusReport is the payload the /status HTTP route returns.
type StatusReport struct {
	RootAlias string          `json:"root_alias"`
	Datasets  []DatasetStatus `json:"datasets"`
}

// Status reports, for every alias under the root alias's dataset tier
// (root_type_dataset), which concrete index currently backs it.
func (m *Manager) Status(ctx context.Context) (interface{}, error) {
	bound, err := m.backend.ListAliases(ctx, m.rootAlias+"_")
	if err != nil {
		return nil, fmt.Errorf("indexmgr: status: %w", err)
	}

	report := StatusReport{RootAlias: m.rootAlias}
	for alias, indices := range bound {
		docType, dataset, ok := splitDatasetAlias(m.rootAlias, alias)
		if !ok {
			continue
		}
		for _, idx := range indices {
			report.Datasets = append(report.Datasets, DatasetStatus{
				DocType:       docType,
				Dataset:       dataset,
				Alias:         alias,
				ConcreteIndex: idx,
			})
		}
	}
	return report, nil
}

// splitDatasetAlias recognizes the root_type_dataset tier, e.g.
// "munin_addr_fr" -> ("addr", "fr"), and rejects the coarser
// root/root_type tiers which have no single dataset to report.
func splitDatasetAlias(root, alias string) (docType, dataset string, ok bool) {
	prefix := root + "_"
	if len(alias) <= len(prefix) {
		return "", "", false
	}
	rest := alias[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '_' {
			return rest[:i], rest[i+1:], true
		}
	}
	return "", "", false
}
