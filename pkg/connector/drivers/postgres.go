//go:build postgres || all_dialects

package drivers

import (
	"github.com/dataglade/dataglade-connect/pkg/connector/postgres"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

func init() {
	register(models.DialectPostgres, postgres.New)
}
