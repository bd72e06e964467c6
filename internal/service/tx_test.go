package service

import "context"

type testTxRepos struct {
	contents   ContentRepositoryInterface
	ingestJobs IngestJobRepositoryInterface
}

func (t *testTxRepos) Contents() ContentRepositoryInterface {
	return t.contents
}

func (t *testTxRepos) IngestJobs() IngestJobRepositoryInterface {
	return t.ingestJobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
