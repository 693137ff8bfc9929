package pipeline

// defaultSearchQueries is the built-in discovery strategy set, used when the
// campaign file does not override queries. Each query targets a population
// the scoring table knows how to rank.
var defaultSearchQueries = []string{
	"mcp server in:name,description",
	"claude in:name,description stars:>5",
	"model context protocol in:description",
	"ai agent langchain in:description stars:>10",
	"autonomous agent llm in:description",
	"stacks clarity smart contract in:description",
}
