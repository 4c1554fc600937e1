// Package field describes the properties shown on CRUD pages.
//
// A [Field] couples a column name with presentation and editing hints:
// type, label, sortability, search and filter participation, validation
// constraints. Fields are grouped per page in an ordered [Set].
//
//	fields := field.Of(
//	    field.ID("id"),
//	    field.Text("name").AsSortable().AsSearchable().AsRequired().WithMaxLength(120),
//	    field.Number("price").WithFormat("%.2f"),
//	    field.Boolean("published").AsFilterable(),
//	)
//
// CRUD definitions can also be declared in YAML and loaded with
// [LoadCatalog]:
//
//	cruds:
//	  - entity: Product
//	    actions:
//	      index:
//	        - {name: id, type: id}
//	        - {name: name, sortable: true, searchable: true}
package field
