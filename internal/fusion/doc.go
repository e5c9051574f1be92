// Package fusion implements the sensor data fusion engine: cleaning,
// calibration, temporal and spatial interpolation, multi-sensor consensus
// fusion, anomaly detection, and fusion reporting.
//
// Every operation is stateless computation over caller-supplied reading
// slices: the Engine holds only immutable configuration (calibration table,
// fusion weights, logger), so one Engine may be shared by any number of
// concurrent callers. Degradation is per sensor type — one type failing a
// fit or lacking data never aborts the result for the others — and no
// batch operation errors on empty input.
package fusion
