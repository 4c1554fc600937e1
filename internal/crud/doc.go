// Package crud implements the CRUD pages of the admin dashboard.
//
// A Controller serves one entity: a paginated, searchable and sortable index
// with batch deletion, a detail page, an edit form, a delete endpoint and a
// standalone filters form. Its behaviour is described by a Configurator and
// its collaborators are grouped in Services, so each step of an action (DTO
// creation, list query, pagination, forms, rendering) can be replaced.
//
// # Routes
//
// With prefix "/admin" and an entity path "product" a Controller registers:
//
//	GET  /admin/product               index
//	GET  /admin/product/filters       filters form
//	POST /admin/product/batch         batch delete
//	GET  /admin/product/{id}          detail
//	GET  /admin/product/{id}/edit     edit form
//	POST /admin/product/{id}/edit     edit submission
//	POST /admin/product/{id}/delete   delete
//
// Disabled actions are not registered at all.
//
// # Events
//
// Every action except the filters form publishes BeforeCrudActionEvent
// first and AfterCrudActionEvent right before rendering. Edits publish
// BeforeEntityUpdatedEvent and AfterEntityUpdatedEvent around the flush;
// deletions publish the matching deleted events. A listener that stops an
// event ends the action and may supply the Response:
//
//	event.Subscribe(dashboard.Events(), func(ctx context.Context, e *crud.BeforeEntityDeletedEvent) (event.Result[crud.Response], error) {
//		if p, ok := e.Instance.(*Product); ok && p.Locked {
//			return event.Stop(crud.ErrorResponse(http.StatusConflict, "Locked products cannot be deleted.")), nil
//		}
//		return event.Continue[crud.Response](), nil
//	})
//
// # Redirects
//
// Successful edits and deletions redirect with 303 to the "referrer" query
// parameter when it is a same-site relative path, otherwise to the index.
package crud
