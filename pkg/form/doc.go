// Package form handles HTML forms over [field.Set] definitions.
//
// A [Form] converts submitted strings to typed values (int64, float64, bool,
// time.Time, string), validates them against field constraints, strips
// markup with pkg/sanitizer and, when bound with [WithData], writes valid
// values back to the instance through a [Binder].
//
//	f := form.New("edit",
//		form.WithFields(fields.Editable()),
//		form.WithData(product, meta),
//		form.WithAction(r.URL.Path),
//	)
//	if err := f.HandleRequest(r); err != nil {
//		return err
//	}
//	if f.IsValid() {
//		// product holds the submitted values
//	}
//	view := f.CreateView()
package form
