package drill_test

import (
	"fmt"

	"github.com/calavorn/realmmap/pkg/drill"
	"github.com/calavorn/realmmap/pkg/region"
)

func ExampleEngine_Click() {
	ds, err := region.ParseDataset([]byte(`{
	  "k_albion": {"name": "Albion", "rgb": "10,0,0", "subjects": ["d_york"]},
	  "d_york":   {"name": "York", "rgb": "20,0,0", "overlord": "k_albion", "subjects": ["c_leeds"]},
	  "c_leeds":  {"name": "Leeds", "rgb": "30,0,0", "overlord": "d_york"},
	  "k_erin":   {"name": "Erin", "rgb": "50,0,0", "subjects": ["c_cork"]},
	  "c_cork":   {"name": "Cork", "rgb": "60,0,0", "overlord": "k_erin"}
	}`))
	if err != nil {
		panic(err)
	}
	e := drill.New(region.New(region.TierCounty, ds))
	s := e.Initial()

	// Each click lands on a county; the engine picks the next realm to open.
	for _, hovered := range []string{"c_leeds", "c_leeds", "c_leeds", "c_cork"} {
		tr := e.Click(s, hovered)
		s = tr.Final(s)
		fmt.Printf("%s: changed=%v reset=%v crumbs=%v\n", hovered, tr.Changed(), tr.Reset, e.Breadcrumbs(s))
	}
	// Output:
	// c_leeds: changed=true reset=true crumbs=[Albion]
	// c_leeds: changed=true reset=false crumbs=[Albion York]
	// c_leeds: changed=false reset=false crumbs=[Albion York]
	// c_cork: changed=true reset=true crumbs=[Erin]
}
