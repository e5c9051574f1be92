// Package domain models environmental sensor readings for a monitored field.
//
// # Data Source
//
// Readings originate from heterogeneous in-field devices (soil moisture
// probes, air/soil thermometers, hygrometers, light sensors) polled by
// upstream collector services, which publish each observation as flat JSON
// to the Kafka source topic. Devices are independent and unreliable:
// readings arrive noisy, duplicated, delayed, and out of order, and the
// fusion engine downstream is built around that assumption.
//
// # Reading Conventions
//
// Quality score:
//
//	A caller-assigned confidence weight in [0,1]. Collectors derive it from
//	device self-diagnostics (battery level, signal strength, checksum
//	status). 1.0 means fully trusted; readings below 0.5 are discarded by
//	the cleaning stage. A reading with no quality_score field on the wire
//	defaults to 1.0.
//
// Timestamps:
//
//	UTC instants. A reading with no timestamp on the wire inherits the
//	Kafka message timestamp set by the collector.
//
// Location:
//
//	Optional WGS-84 latitude/longitude of the device. Only located
//	readings participate in spatial fusion.
//
// Units:
//
//	Free-form strings owned by the collector ("%", "C", "hPa", "lux").
//	The engine never converts units; calibration is a linear correction
//	within a unit, not a conversion between units.
//
// # Immutability
//
// Reading is a value type and is never mutated after construction. Derived
// readings (calibrated values) are new instances produced by [Reading.Derive],
// and metadata maps are copied per instance so no two readings alias one map.
package domain
