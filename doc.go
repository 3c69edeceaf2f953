// Package lettasdk provides a Go client for driving multi-step conversational
// turns against a Letta agent service.
//
// The SDK owns the full turn lifecycle: it submits user input, streams the
// agent's response, classifies proposed tool calls against a permission
// policy, executes approved tools locally, and feeds results back to the
// service until the turn reaches a terminal state. Tool calls the policy
// cannot decide suspend the turn and surface to the caller for an explicit
// allow or deny.
//
// Basic usage:
//
//	client := lettasdk.NewClient()
//	defer client.Close()
//
//	err := client.Start(ctx,
//	    lettasdk.WithService(svc),
//	    lettasdk.WithTools(readTool, writeTool),
//	    lettasdk.WithPermissionRules(
//	        lettasdk.PermissionRule{ToolName: "read_file", Behavior: lettasdk.BehaviorAllow},
//	    ),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Submit(ctx, "Summarize TODO.md"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for ev := range client.Events() {
//	    switch ev := ev.(type) {
//	    case *lettasdk.TextEvent:
//	        fmt.Print(ev.Text)
//	    case *lettasdk.ApprovalNeededEvent:
//	        // prompt the user, then client.Resolve(...)
//	    case *lettasdk.TurnFinishedEvent:
//	        // done
//	    }
//	}
//
// Interrupting a conversation with Interrupt cancels the active turn and
// everything scheduled behind it; input submitted while a turn is active is
// queued and dispatched as one combined turn once the conversation settles.
package lettasdk
