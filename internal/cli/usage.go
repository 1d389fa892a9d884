package cli

import "fmt"

func printUsage() {
	fmt.Println("industriage - workflow evaluation harness for maintenance transcriptions")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  industriage <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run        Evaluate a dataset against a workflow")
	fmt.Println("  workflows  List available workflow definitions")
	fmt.Println("  validate   Load and compile a workflow without running it")
	fmt.Println("  results    Browse persisted evaluation runs")
	fmt.Println("  serve      Start the manual test dashboard")
	fmt.Println("  help       Show this help")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --workflow=<name>   Workflow to run or inspect")
	fmt.Println("  --dataset=<path>    Dataset file (.json array or .jsonl)")
	fmt.Println("  --workflows=<dir>   Workflow configuration root (default ./workflows)")
	fmt.Println("  --model=<name>      Override the workflow's configured model")
	fmt.Println("  --backend=<kind>    Override the backend kind (openai, anthropic, ollama)")
	fmt.Println("  --output=<dir>      Report output base directory (default ./outputs)")
	fmt.Println("  --addr=<addr>       Dashboard listen address (default :8080)")
	fmt.Println("  --run=<id>          Show per-item results of one persisted run")
	fmt.Println("  --limit=<n>         Limit listed runs (default 20)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  industriage run --workflow=triage --dataset=./data/eval.json")
	fmt.Println("  industriage run --workflow=closing --dataset=./data/closing.jsonl --model=gpt-4o")
	fmt.Println("  industriage validate --workflow=triage")
	fmt.Println("  industriage results --workflow=triage --limit=10")
	fmt.Println("  industriage serve --backend=ollama --addr=:9000")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  OPENAI_API_KEY / ANTHROPIC_API_KEY  Backend credentials")
	fmt.Println("  INDUSTRIAGE_WORKFLOWS_DIR           Workflow configuration root")
	fmt.Println("  INDUSTRIAGE_STATE_BACKEND           sqlite (default), redis, or hybrid")
	fmt.Println("  INDUSTRIAGE_SQLITE_PATH             SQLite database path")
	fmt.Println("  INDUSTRIAGE_REDIS_ADDR              Redis address for redis/hybrid state")
}
