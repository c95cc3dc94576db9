// Package pkg holds the libraries behind realmmap, an explorer for a
// political map drawn in nested tiers (empire, kingdom, duchy, county and
// the nation view).
//
// # Overview
//
// The libraries fall into three groups:
//
//  1. Engine: [region], [layers], [drill] and [hover] turn a tier dataset
//     into a region forest and answer hover and click queries against it.
//  2. Data: [source], [raster] and [cache] fetch datasets and base maps
//     and keep them around between runs.
//  3. Sessions: [explorer] and [session] tie the engine to one user's
//     pointer and persist their drill state.
//
// # Data Flow
//
//	source.Source (HTTP, directory or MongoDB)
//	         ↓
//	    region.Graph + region.ColorIndex
//	         ↓
//	    raster.Map (pointer position → colour → region id)
//	         ↓
//	    hover.Resolver (first visible ancestor)
//	         ↓
//	    drill.Engine (click → layer table + drill stack)
//
// # Quick Start
//
//	src, _ := source.NewDirSource("./data", "")
//	x := explorer.New(explorer.SourceLoader{Source: src, Settings: explorer.DefaultSettings()})
//	if err := x.Load(ctx, region.TierCounty); err != nil {
//	    return err
//	}
//	x.Move(ctx, 120, 48, 800, 400)
//	snap, tr, _ := x.Click(ctx)
//	fmt.Println(tr.Target, snap.Breadcrumbs)
//
// Supporting packages: [errors] for coded errors, [observability] for
// metrics hooks, [httputil] for retries, [render/nodelink] for hierarchy
// diagrams and [buildinfo] for version data.
package pkg
