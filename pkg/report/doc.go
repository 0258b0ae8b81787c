// Package report serializes the result of a routing run.
//
// A [Report] is the in-memory exchange format produced by the pipeline: for
// every net it carries the finalized segments, the vias grouped per port, the
// solved port voltages and currents, and the per-cell voltage and current
// field. The CLI and the cache store it as indented JSON:
//
//	{
//	  "run_id": "6f1c...",
//	  "board": {"pitch": 1, "width": 10, "height": 10, "layers": 2},
//	  "usage": {"occupied_cells": 24, "area": 24, "overlap": 0},
//	  "nets": [
//	    {
//	      "name": "VDD",
//	      "ports": [{"port": 0, "role": "source", "demand": 5, "voltage": 5, "current": 1.2, "vias": [[0.5, 0.5]]}],
//	      "segments": [{"layer": 0, "from": [0.5, 0.5], "to": [9.5, 9.5], "width": 1, ...}],
//	      "field": [{"layer": 0, "x": 0, "y": 0, "voltage": 4.9, "current": 1.2}]
//	    }
//	  ]
//	}
//
// Field entries are listed layer by layer in the order the net's cells were
// stamped. [ReadJSON] decodes the same format so cached reports round-trip.
package report
