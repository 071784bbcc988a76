/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package errors provides semantic error types for CompactConnect.

The package defines sentinel errors for each error kind in the system's
taxonomy, typed errors carrying context, and helper functions for error
checking. Core logic returns these error kinds; transport adapters at the
boundary translate them into transport-specific responses.

Usage:

	if err := client.DeactivatePrivilege(ctx, compact, providerID, jurisdiction); err != nil {
	    if errors.IsNotFound(err) {
	        // no privilege exists for that jurisdiction
	    }
	}

Error kinds:
  - ErrNotFound: a targeted record does not exist
  - ErrInvalidRequest: input validation failed; no work was attempted
  - ErrInternal: an invariant was violated; requires investigation
  - ErrDataCorruption: a persisted record failed schema validation on load
  - ErrTransactionFailed: the store rejected a transactional write
*/
package errors
