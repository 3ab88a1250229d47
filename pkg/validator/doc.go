// Package validator builds declarative checks for entity input.
//
// Each rule pairs a Check with the error reported when it fails. Apply runs
// all rules and aggregates failures into ValidationErrors, which implements
// error:
//
//	err := validator.Apply(
//		validator.Required("purpose", req.Purpose),
//		validator.Positive("amount", req.Amount.Units()),
//		validator.Ticker("crypto_currency", currency),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve != nil {
//		fmt.Println(ve.Fields())
//	}
package validator
