// Package mail sends transactional email through SMTP or SendGrid.
//
// Callers depend on Mail and Message only. Providers wrap responses that
// retrying cannot fix (bad recipient, rejected payload) in ErrRejected.
package mail
