// Package clock provides a small time abstraction.
//
// Aggregation timestamps, urgency tiers and retry schedules all read "now"
// through Clocker so tests can pin time with Fixed.
package clock
