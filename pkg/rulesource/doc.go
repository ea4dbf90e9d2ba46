// Package rulesource serves evaluator parameters from a git repository.
//
// Pharmacy rule thresholds change on regulatory timelines, not deploy
// timelines. Keeping them in a reviewed repository gives every change an
// author, a diff, and a revert path. The source clones a pinned branch,
// loads the params file at startup, and polls for new commits; a commit
// that touches the params file is parsed, validated, and applied
// atomically through the caller's ApplyFunc.
//
// A parameter set that fails validation never reaches the running
// evaluators: the apply step is skipped and the clone is reset to the
// last commit that loaded cleanly. The watcher keeps retrying the bad
// commit each poll, so pushing a fix on top recovers without a restart.
//
//	src, err := rulesource.New(&cfg.Rules.Git, func(p rules.Params, c rulesource.CommitInfo) error {
//	    reg, err := rules.BuildRegistry(p, refdataSrc)
//	    if err != nil {
//	        return err
//	    }
//	    holder.Swap(reg)
//	    return nil
//	})
//	if err != nil {
//	    return err
//	}
//	if err := src.Start(ctx); err != nil {
//	    return err
//	}
//	defer src.Stop()
package rulesource
