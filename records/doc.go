/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package records defines the CompactConnect provider-table record schema.

All records live in one wide table keyed by (pk, sk). Every record belonging
to a provider shares the partition {compact}#PROVIDER#{providerId}; the sort
key encodes the record kind:

	{compact}#PROVIDER                                      provider
	{compact}#PROVIDER#license/{jur}/{abbr}#                license
	{compact}#PROVIDER#license/{jur}/{abbr}#UPDATE#{ts}/{h} license update
	{compact}#PROVIDER#privilege/{jur}/{abbr}#              privilege
	{compact}#PROVIDER#privilege/{jur}/{abbr}#UPDATE#{ts}/{h} privilege update
	{compact}#PROVIDER#investigation/...                    investigation

The package is pure data modeling: key derivation, the change-hash scheme for
tamper-evident history entries, derived-status computation, and validated
encoding/decoding via a closed mapping over the "type" discriminator. It
performs no I/O.
*/
package records
