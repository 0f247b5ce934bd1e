// Package taskboard wires the task service client, the department board
// and the lifecycle engine into one session.
//
// # Getting Started
//
// Start a task service (taskboard serve), then open a session:
//
//	s, err := taskboard.New(
//	    taskboard.WithHost("localhost"),
//	    taskboard.WithPort(7480),
//	    taskboard.WithQuery(domain.NewQuery(domain.DepartmentDesign)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Browsing the Tree
//
// Fetch the root page of the query and expand a row:
//
//	if err := s.Board.Reload(ctx); err != nil {
//	    return err
//	}
//	err = s.Board.Toggle(ctx, s.Board.Roots()[0].ID)
//
// Rows returns the visible rows with their depth, in display order.
//
// # Performing Actions
//
// Actions go through the engine, which validates them against the task
// snapshot before calling the service and pushes the fresh snapshot back
// into the board:
//
//	res, err := s.Perform(ctx, id, lifecycle.Request{Action: domain.ActionStart})
//
// Field edits go through the board so the cached row is updated in place:
//
//	task, err := s.Board.Patch(ctx, id, board.Progress(40))
//
// # Metrics
//
// WithRegisterer registers the board counters on a Prometheus registerer.
// Without it the session records nothing.
package taskboard
