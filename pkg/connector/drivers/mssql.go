//go:build mssql || all_dialects

package drivers

import (
	"github.com/dataglade/dataglade-connect/pkg/connector/mssql"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

func init() {
	register(models.DialectMSSQL, mssql.New)
}
