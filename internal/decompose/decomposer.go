// Package decompose implements the inside-view reasoning loop: a
// question is broken into a dependency graph of sub-questions,
// independent nodes are solved directly, and the graph is contracted
// into a simplified residual question until it stops shrinking.
package decompose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eppie/foresight/internal/model"
	"github.com/eppie/foresight/internal/oracle"
	"github.com/eppie/foresight/internal/worker"
)

const decompositionPrompt = `You are a reasoning agent. Break the question below into smaller, manageable subquestions.
Identify the subquestions that must be answered to arrive at the final solution, and for each one
its dependencies on other subquestions. A subquestion is dependent if it requires the answer of
another subquestion to be solved.

Return ONLY valid JSON:
{
  "subquestions": [
    {
      "id": 0,
      "description": "the subquestion text",
      "dependencies": [],
      "answer": ""
    }
  ]
}

- "id" is an integer index starting from 0.
- "dependencies" lists the integer ids the subquestion depends on; an empty list means it is independent.
- Leave "answer" as an empty string.`

const solverPrompt = `You are a precise solver. Answer the following question directly and provide only the final answer without explanations or extra text.`

const contractionPrompt = `You are a reasoning process optimizer. Create a new, single, self-contained question that
incorporates known information and focuses on the remaining unsolved parts of a problem.
The new question must be solvable on its own.

Provide only the new, optimized question within <question></question> tags.`

const finalSolvePrompt = `You are an expert problem solver. Provide a step-by-step solution to the question. Explain your
reasoning clearly and enclose the final numeric or textual answer within <answer></answer> tags.`

// Decomposer runs the decompose/solve/contract loop.
type Decomposer struct {
	client        *oracle.Client
	maxIterations int
	workers       int
	strict        bool
	logger        *slog.Logger
}

// New creates a Decomposer. maxIterations bounds the
// decompose/contract cycles; workers bounds the fan-out over
// independent sub-question solves.
func New(client *oracle.Client, maxIterations, workers int, strict bool, logger *slog.Logger) *Decomposer {
	if maxIterations <= 0 {
		maxIterations = 2
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Decomposer{
		client:        client,
		maxIterations: maxIterations,
		workers:       workers,
		strict:        strict,
		logger:        logger,
	}
}

// Decompose runs the full loop for the question and returns the audit
// trace including the final step-by-step answer.
func (d *Decomposer) Decompose(ctx context.Context, question string) (*model.Decomposition, error) {
	trace := &model.Decomposition{}
	current := question

	for iteration := 1; iteration <= d.maxIterations; iteration++ {
		graph, err := d.decomposeOnce(ctx, current)
		if err != nil {
			return nil, err
		}

		step := model.DecompositionStep{Question: current}
		if graph.Len() > 0 {
			depth, err := graph.LongestPathDepth()
			if err != nil {
				return nil, err
			}
			step.Depth = depth
		}

		if graph.Len() == 0 || len(graph.Dependent()) == 0 {
			// Nothing left to contract; solve the current question whole.
			step.SubQuestions = graph.Snapshot()
			trace.Steps = append(trace.Steps, step)
			break
		}

		if err := d.solveIndependent(ctx, graph); err != nil {
			return nil, err
		}

		next, err := d.contract(ctx, graph, current)
		if err != nil {
			return nil, err
		}

		step.SubQuestions = graph.Snapshot()
		step.Contracted = next
		trace.Steps = append(trace.Steps, step)

		if next == current {
			d.logger.Debug("contraction reached a fixed point", "iteration", iteration)
			break
		}
		current = next
	}

	answer, err := d.finalSolve(ctx, current)
	if err != nil {
		return nil, err
	}
	trace.FinalAnswer = answer

	return trace, nil
}

// decomposeOnce issues the decomposition call and builds the graph.
func (d *Decomposer) decomposeOnce(ctx context.Context, question string) (*Graph, error) {
	user := fmt.Sprintf("Original question: ```%s```\n\nProvide the JSON decomposition.", question)

	var wire struct {
		SubQuestions []model.SubQuestion `json:"subquestions"`
	}
	if err := d.client.QueryObject(ctx, "decompose", decompositionPrompt, user, &wire); err != nil {
		return nil, err
	}

	graph, err := NewGraph(wire.SubQuestions, d.strict)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("decomposed question",
		"subquestions", graph.Len(),
		"independent", len(graph.Independent()),
		"dependent", len(graph.Dependent()))
	return graph, nil
}

// solveIndependent answers every dependency-free node, one direct
// oracle call per node, fanned out over the worker pool.
func (d *Decomposer) solveIndependent(ctx context.Context, graph *Graph) error {
	independent := graph.Independent()

	tasks := make([]worker.Task[string], len(independent))
	for i, sq := range independent {
		description := sq.Description
		tasks[i] = func(ctx context.Context) (string, error) {
			user := fmt.Sprintf("Question: ```%s```\n\nAnswer:", description)
			return d.client.QueryText(ctx, "solve_subquestion", solverPrompt, user)
		}
	}

	answers, err := worker.RunAll(ctx, d.workers, tasks)
	if err != nil {
		return fmt.Errorf("solve independent sub-questions: %w", err)
	}

	for i, sq := range independent {
		sq.Answer = strings.TrimSpace(answers[i])
	}
	return nil
}

// contract folds solved independent answers and unsolved dependent
// nodes into one simplified residual question.
func (d *Decomposer) contract(ctx context.Context, graph *Graph, original string) (string, error) {
	independent := graph.Independent()
	dependent := graph.Dependent()

	if len(dependent) == 0 {
		// Fully decomposed: conjoin the solved answers with the original.
		var b strings.Builder
		for _, sq := range independent {
			fmt.Fprintf(&b, "Given %q is %q.\n", sq.Description, sq.Answer)
		}
		fmt.Fprintf(&b, "What is the final answer to the original question: %q?", original)
		return b.String(), nil
	}

	var known strings.Builder
	for _, sq := range independent {
		fmt.Fprintf(&known, "- %q is known to be %q.\n", sq.Description, sq.Answer)
	}
	var remaining strings.Builder
	for _, sq := range dependent {
		fmt.Fprintf(&remaining, "- %s\n", sq.Description)
	}

	user := fmt.Sprintf(
		"Original question: ```%s```\n\nThe following subproblems have been solved and can be treated as known conditions:\n%s\nThe remaining parts of the problem that still need to be solved are:\n%s",
		original, known.String(), remaining.String(),
	)

	response, err := d.client.QueryText(ctx, "contract", contractionPrompt, user)
	if err != nil {
		return "", err
	}

	question, ok := extractTag(response, "question")
	if !ok {
		// Degraded contraction: recoverable, the full reply stands in.
		d.logger.Warn("contraction reply missing <question> tags, using full response")
		return strings.TrimSpace(response), nil
	}
	return question, nil
}

// finalSolve asks for the full step-by-step solution of the residual
// question.
func (d *Decomposer) finalSolve(ctx context.Context, question string) (string, error) {
	user := fmt.Sprintf("Question: ```%s```", question)

	response, err := d.client.QueryText(ctx, "final_solve", finalSolvePrompt, user)
	if err != nil {
		return "", err
	}

	if answer, ok := extractTag(response, "answer"); ok {
		return answer, nil
	}
	return strings.TrimSpace(response), nil
}

// extractTag pulls the trimmed contents of <tag>...</tag> from text.
func extractTag(text, tag string) (string, bool) {
	opening := "<" + tag + ">"
	closing := "</" + tag + ">"

	start := strings.Index(text, opening)
	if start == -1 {
		return "", false
	}
	start += len(opening)
	end := strings.Index(text[start:], closing)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}
