// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package admission turns a vote submission into exactly one decision.

# Pipeline

Guards run in a fixed order and the first failure wins:

	rate limit → token verify → token/payload match →
	payload validation → IP cap → device → session → insert

	p := admission.NewPipeline(limiter, issuer, admission.NewEnforcer(store, 20, clock))
	d := p.Admit(ctx, admission.Request{IP: ip, Vote: body})
	if !d.Accepted() {
		// d.Reason.Status(), d.Reason, d.Message
	}

The limiter records every attempt it lets through, including ones a later
guard rejects. A body that failed to decode still passes the limiter
first and is then refused as invalid_payload. Nothing else has side effects unless the vote is accepted.

The token must carry exactly the submitted sessionId and gender, and an
age string equal to the decimal form of the submitted age.

# Uniqueness

The enforcer reads before it writes to skip doomed inserts, but the read
is not what guarantees uniqueness. Two racing requests for one device can
both pass ExistsByDevice; the store's unique constraint rejects the second
insert and the enforcer reports it as AlreadyVoted (or DuplicateSession).

The per-IP cap is a read-then-insert and may overshoot by the number of
concurrent requests from one address.

# Reasons

	accepted            200
	rate_limited        429
	token_expired       401
	token_bad_signature 401
	token_malformed     401
	token_mismatch      401
	invalid_payload     400
	ip_cap_exceeded     403
	already_voted       403
	duplicate_session   403
	store_unavailable   500

Only store_unavailable is a server fault. A vote whose insert could not be
confirmed is never reported as accepted.
*/
package admission
