package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/match --output domain/match --outpkg matchmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name FixtureSource --dir ../usecase --inpackage --testonly --exported=false --output ../usecase --filename mock_fixture_source_test.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name JobQueue --dir ../usecase --inpackage --testonly --exported=false --output ../usecase --filename mock_job_queue_test.go
