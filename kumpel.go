// Package kumpel provides small ETL helpers around database/sql: a batched
// insert/upsert table writer, table and schema helpers, multi-connection
// queries and an asynchronous row sink.
//
// 架构层次：
// Application -> Table.Write -> SQLDriver(语句模板) -> Session/Tx -> Database
//
// 支持的数据库：PostgreSQL（lib/pq）、MySQL（go-sql-driver/mysql）、SQLite（go-sqlite3）
package kumpel
