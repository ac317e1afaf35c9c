package classify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/napolipulse/pulse-ingest/internal/pulse"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  pulse.Sector
	}{
		{"Sviluppatore Full Stack", pulse.SectorIT},
		{"Senior Software Engineer", pulse.SectorIT},
		{"Cameriere di Sala", pulse.SectorFood},
		{"Pizzaiolo Esperto", pulse.SectorFood},
		{"Commesso Vendita", pulse.SectorRetail},
		{"CASSIERE part-time", pulse.SectorRetail},
		{"Magazziniere con patentino", pulse.SectorLogistics},
		{"Autista Consegne", pulse.SectorLogistics},
		{"Impiegato Amministrativo", pulse.SectorAdmin},
		{"Segretaria di Direzione", pulse.SectorAdmin},
		{"Receptionist", pulse.SectorOther},
		{"", pulse.SectorOther},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.title), "title %q", tc.title)
	}
}

func TestClassify_OrderBreaksTies(t *testing.T) {
	t.Parallel()

	// Matches both the IT rule ("software") and the admin rule ("impiegato");
	// the IT rule comes first in the table and must win.
	require.Equal(t, pulse.SectorIT, Classify("Impiegato software house"))
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	first := Classify("sviluppatore backend")
	for range 100 {
		require.Equal(t, first, Classify("sviluppatore backend"))
	}
}
