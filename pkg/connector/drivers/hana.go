//go:build hana || all_dialects

package drivers

import (
	"github.com/dataglade/dataglade-connect/pkg/connector/hana"
	"github.com/dataglade/dataglade-connect/pkg/models"
)

func init() {
	register(models.DialectHANA, hana.New)
}
