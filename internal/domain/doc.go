// Package domain models the tabular records flowing through the smoke-asthma
// analysis pipeline.
//
// # Data Sources
//
// Daily smoke PM2.5 predictions:
//
//	County-level daily estimates of wildfire-smoke particulate produced by an
//	upstream statistical smoke model. The file is sparse: the model emits a
//	row only for (county, day) pairs on which smoke was detected over the
//	county. Absence of a row inside the covered date range therefore means a
//	smoke PM2.5 concentration of exactly 0, not a missing observation. This
//	zero-fill convention is load-bearing for every monthly sum downstream.
//
// County boundaries:
//
//	Census TIGER-style GeoJSON with one feature per county. Properties carry
//	the 5-digit county FIPS (GEOID), the 2-digit state FIPS (STATEFP), and
//	the county name (NAME). Geometry is kept through the pipeline so the
//	combined monthly table can be exported in a geometry-preserving format.
//
// Asthma rates:
//
//	Monthly county-level asthma hospitalization/ED-visit rates published by
//	the state health department, with 95% confidence bounds and the raw
//	visit count. Observations start in 2011 and are keyed by county NAME,
//	not FIPS, which forces the name-based join below.
//
// Health facilities:
//
//	A flat registry of licensed health-facility addresses, one row per
//	facility, keyed by county name in UPPER CASE.
//
// # Name Normalization
//
// The three name-keyed sources disagree on capitalization ("El Paso" vs
// "EL PASO") and on the " County" suffix. Every name is passed through
// [NormalizeCountyName] at ingestion time; joins operate only on normalized
// names. An exposure-side name that still fails to match is a data-quality
// signal that is logged and counted, never silently dropped.
//
// # Null Semantics
//
// Joins from the exposure table outward are left-outer: a county-month with
// no asthma observation (all of 2008-2010, plus occasional gaps) keeps its
// exposure value and carries nil asthma fields. Aggregations ignore nil
// inputs rather than propagating them, and the regression stage excludes
// rows with nil fields from each model design.
package domain
