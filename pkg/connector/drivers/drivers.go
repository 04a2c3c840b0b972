// Package drivers links dialect connectors into a build. Each dialect sits
// behind a build tag (mssql, hana, postgres) so binaries carry only the
// drivers they need; the all_dialects tag links every one. Importing this
// package and calling RegisterAll wires the linked dialects into a registry.
package drivers

import (
	"github.com/dataglade/dataglade-connect/pkg/connector"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

type registration struct {
	dialect models.Dialect
	ctor    connector.ConnectorConstructor
}

// linked collects the dialects compiled into this build, in init order.
var linked []registration

func register(d models.Dialect, ctor connector.ConnectorConstructor) {
	linked = append(linked, registration{dialect: d, ctor: ctor})
}

// RegisterAll installs every linked dialect connector on the registry and
// returns the dialects registered. A build with no dialect tags links no
// connectors; callers should treat an empty result as a build mistake.
func RegisterAll(r *connector.Registry) []models.Dialect {
	out := make([]models.Dialect, 0, len(linked))
	for _, reg := range linked {
		r.RegisterConnector(reg.dialect, reg.ctor)
		out = append(out, reg.dialect)
	}
	return out
}
